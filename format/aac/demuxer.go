// Package aac reads raw AAC frames from an ADTS stream.
package aac

import (
	"bufio"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/codec/aacparser"
)

const Ext = ".aac"

type Demuxer struct {
	r         *bufio.Reader
	codecdata *aacparser.CodecData
	ts        time.Duration
	// BitRate is reported by the codec data; ADTS does not carry it.
	BitRate int
}

func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{
		r: bufio.NewReader(r),
	}
}

// Probe reports whether b starts with an ADTS frame header.
func Probe(b []byte) bool {
	_, err := aacparser.ParseADTSHeader(b)
	return err == nil
}

func (self *Demuxer) Streams() (streams []av.CodecData, err error) {
	if self.codecdata == nil {
		var b []byte
		if b, err = self.r.Peek(aacparser.ADTSHeaderLength); err != nil {
			err = errors.Wrap(err, "aac: read header")
			return
		}
		var hdr aacparser.ADTSHeader
		if hdr, err = aacparser.ParseADTSHeader(b); err != nil {
			return
		}
		var cd aacparser.CodecData
		if cd, err = aacparser.NewCodecDataFromConfig(hdr.AudioSpecificConfig()); err != nil {
			return
		}
		cd.BitRate_ = self.BitRate
		self.codecdata = &cd
	}
	streams = []av.CodecData{*self.codecdata}
	return
}

// ReadPacket returns the next frame without its ADTS header. Times advance
// by the samples each frame holds. A truncated last frame ends the stream.
func (self *Demuxer) ReadPacket() (pkt av.Packet, err error) {
	var b []byte
	// io.EOF at the end, a short tail included
	if b, err = self.r.Peek(aacparser.ADTSHeaderLength); err != nil {
		return
	}
	var hdr aacparser.ADTSHeader
	if hdr, err = aacparser.ParseADTSHeader(b); err != nil {
		return
	}

	data := make([]byte, hdr.FrameLen)
	if _, err = io.ReadFull(self.r, data); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return
	}
	pkt.Data = data[hdr.HeaderLen:]
	pkt.IsKeyFrame = true
	pkt.Time = self.ts
	self.ts += time.Duration(hdr.Samples) * time.Second / time.Duration(hdr.SampleRate())
	return
}
