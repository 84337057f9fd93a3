// Package h264parser derives H.264 codec parameters from SPS/PPS NAL units.
package h264parser

import (
	"math"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/utils/bits/pio"
)

func IsDataNALU(b []byte) bool {
	typ := h264.NALUType(b[0] & 0x1f)
	return typ >= h264.NALUTypeNonIDR && typ <= h264.NALUTypeIDR
}

const (
	NALU_RAW = iota
	NALU_AVCC
	NALU_ANNEXB
)

// SplitNALUs accepts either an Annex B byte stream or length prefixed (AVCC) NAL units.
func SplitNALUs(b []byte) (nalus [][]byte, typ int) {
	if len(b) < 4 {
		return [][]byte{b}, NALU_RAW
	}

	if val4 := pio.U32BE(b); val4 > 1 && val4 <= uint32(len(b)-4) {
		_b := b
		var avcc [][]byte
		for len(_b) >= 4 {
			n := pio.U32BE(_b)
			if n > uint32(len(_b)-4) {
				break
			}
			avcc = append(avcc, _b[4:4+n])
			_b = _b[4+n:]
		}
		if len(_b) == 0 {
			return avcc, NALU_AVCC
		}
	}

	var annexb h264.AnnexB
	if err := annexb.Unmarshal(b); err == nil {
		return [][]byte(annexb), NALU_ANNEXB
	}

	return [][]byte{b}, NALU_RAW
}

// PktToCodecData scans a key frame for SPS and PPS.
func PktToCodecData(pkt av.Packet) (codecData CodecData, err error) {
	if !pkt.IsKeyFrame {
		err = errors.New("h264parser: not a key frame")
		return
	}
	var sps, pps []byte
	nalus, _ := SplitNALUs(pkt.Data)
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch h264.NALUType(nalu[0] & 0x1f) {
		case h264.NALUTypeSPS:
			sps = nalu
		case h264.NALUTypePPS:
			pps = nalu
		}
	}
	if len(sps) == 0 || len(pps) == 0 {
		err = errors.New("h264parser: empty sps and/or pps")
		return
	}
	return NewCodecDataFromSPSAndPPS(sps, pps)
}

type CodecData struct {
	Record     []byte
	RecordInfo AVCDecoderConfRecord
	SPSInfo    h264.SPS
	BitRate_   int
}

func (self CodecData) Type() av.CodecType {
	return av.H264
}

// ExtraData is the AVCDecoderConfigurationRecord.
func (self CodecData) ExtraData() []byte {
	return self.Record
}

func (self CodecData) SPS() []byte {
	return self.RecordInfo.SPS[0]
}

func (self CodecData) PPS() []byte {
	return self.RecordInfo.PPS[0]
}

func (self CodecData) Width() int {
	return self.SPSInfo.Width()
}

func (self CodecData) Height() int {
	return self.SPSInfo.Height()
}

func (self CodecData) BitRate() int {
	return self.BitRate_
}

// Framerate is reported in thousandths when the SPS carries timing info.
func (self CodecData) Framerate() (int, int) {
	fps := self.SPSInfo.FPS()
	if fps <= 0 {
		return 0, 0
	}
	return int(math.Round(fps * 1000)), 1000
}

func (self CodecData) PacketDuration([]byte) (dur time.Duration, err error) {
	fpsNum, fpsDen := self.Framerate()
	if fpsNum <= 0 || fpsDen <= 0 {
		err = errors.Errorf("h264parser: invalid framerate: %d/%d", fpsNum, fpsDen)
		return
	}
	dur = (time.Second * time.Duration(fpsDen)) / time.Duration(fpsNum)
	return
}

func NewCodecDataFromAVCDecoderConfRecord(record []byte) (self CodecData, err error) {
	self.Record = record
	if _, err = (&self.RecordInfo).Unmarshal(record); err != nil {
		return
	}
	if len(self.RecordInfo.SPS) == 0 {
		err = errors.New("h264parser: no SPS found in AVCDecoderConfRecord")
		return
	}
	if len(self.RecordInfo.PPS) == 0 {
		err = errors.New("h264parser: no PPS found in AVCDecoderConfRecord")
		return
	}
	if err = self.SPSInfo.Unmarshal(self.RecordInfo.SPS[0]); err != nil {
		err = errors.Wrap(err, "h264parser: parse SPS failed")
		return
	}
	return
}

func NewCodecDataFromSPSAndPPS(sps, pps []byte) (self CodecData, err error) {
	if len(sps) < 4 {
		err = errors.New("h264parser: sps too short")
		return
	}
	recordinfo := AVCDecoderConfRecord{}
	recordinfo.AVCProfileIndication = sps[1]
	recordinfo.ProfileCompatibility = sps[2]
	recordinfo.AVCLevelIndication = sps[3]
	recordinfo.SPS = [][]byte{sps}
	recordinfo.PPS = [][]byte{pps}
	recordinfo.LengthSizeMinusOne = 3

	buf := make([]byte, recordinfo.Len())
	recordinfo.Marshal(buf)

	self.RecordInfo = recordinfo
	self.Record = buf

	if err = self.SPSInfo.Unmarshal(sps); err != nil {
		err = errors.Wrap(err, "h264parser: parse SPS failed")
		return
	}
	return
}

type AVCDecoderConfRecord struct {
	AVCProfileIndication uint8
	ProfileCompatibility uint8
	AVCLevelIndication   uint8
	LengthSizeMinusOne   uint8
	SPS                  [][]byte
	PPS                  [][]byte
}

var ErrDecconfInvalid = errors.New("h264parser: AVCDecoderConfRecord invalid")

func (self *AVCDecoderConfRecord) Unmarshal(b []byte) (n int, err error) {
	if len(b) < 7 {
		err = ErrDecconfInvalid
		return
	}

	self.AVCProfileIndication = b[1]
	self.ProfileCompatibility = b[2]
	self.AVCLevelIndication = b[3]
	self.LengthSizeMinusOne = b[4] & 0x03
	spscount := int(b[5] & 0x1f)
	n += 6

	for i := 0; i < spscount; i++ {
		if len(b) < n+2 {
			err = ErrDecconfInvalid
			return
		}
		spslen := int(pio.U16BE(b[n:]))
		n += 2

		if len(b) < n+spslen {
			err = ErrDecconfInvalid
			return
		}
		self.SPS = append(self.SPS, b[n:n+spslen])
		n += spslen
	}

	if len(b) < n+1 {
		err = ErrDecconfInvalid
		return
	}
	ppscount := int(b[n])
	n++

	for i := 0; i < ppscount; i++ {
		if len(b) < n+2 {
			err = ErrDecconfInvalid
			return
		}
		ppslen := int(pio.U16BE(b[n:]))
		n += 2

		if len(b) < n+ppslen {
			err = ErrDecconfInvalid
			return
		}
		self.PPS = append(self.PPS, b[n:n+ppslen])
		n += ppslen
	}

	return
}

func (self AVCDecoderConfRecord) Len() (n int) {
	n = 7
	for _, sps := range self.SPS {
		n += 2 + len(sps)
	}
	for _, pps := range self.PPS {
		n += 2 + len(pps)
	}
	return
}

func (self AVCDecoderConfRecord) Marshal(b []byte) (n int) {
	b[0] = 1
	b[1] = self.AVCProfileIndication
	b[2] = self.ProfileCompatibility
	b[3] = self.AVCLevelIndication
	b[4] = self.LengthSizeMinusOne | 0xfc
	b[5] = uint8(len(self.SPS)) | 0xe0
	n += 6

	for _, sps := range self.SPS {
		pio.PutU16BE(b[n:], uint16(len(sps)))
		n += 2
		copy(b[n:], sps)
		n += len(sps)
	}

	b[n] = uint8(len(self.PPS))
	n++

	for _, pps := range self.PPS {
		pio.PutU16BE(b[n:], uint16(len(pps)))
		n += 2
		copy(b[n:], pps)
		n += len(pps)
	}

	return
}
