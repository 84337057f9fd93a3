// Package aacparser turns an MPEG-4 AudioSpecificConfig or an ADTS stream into
// AAC codec parameters.
package aacparser

import (
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pkg/errors"
	"github.com/tyrese/avmux/av"
)

const ADTSHeaderLength = 7

var sampleRateTable = []int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

type ADTSHeader struct {
	ObjectType      int
	SampleRateIndex int
	ChannelConfig   int
	HeaderLen       int
	FrameLen        int
	Samples         int
}

func (self ADTSHeader) SampleRate() int {
	if self.SampleRateIndex < len(sampleRateTable) {
		return sampleRateTable[self.SampleRateIndex]
	}
	return 0
}

// AudioSpecificConfig converts the header fields to a decoder config.
func (self ADTSHeader) AudioSpecificConfig() mpeg4audio.AudioSpecificConfig {
	return mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectType(self.ObjectType),
		SampleRate:   self.SampleRate(),
		ChannelCount: self.ChannelConfig,
	}
}

func ParseADTSHeader(frame []byte) (hdr ADTSHeader, err error) {
	if len(frame) < ADTSHeaderLength {
		err = errors.New("aacparser: adts header too short")
		return
	}
	if frame[0] != 0xff || frame[1]&0xf6 != 0xf0 {
		err = errors.New("aacparser: not adts header")
		return
	}
	hdr.ObjectType = int(frame[2]>>6) + 1
	hdr.SampleRateIndex = int(frame[2] >> 2 & 0xf)
	hdr.ChannelConfig = int(frame[2]<<2&0x4 | frame[3]>>6&0x3)
	if hdr.ChannelConfig == 0 {
		err = errors.New("aacparser: adts channel count invalid")
		return
	}
	if hdr.SampleRate() == 0 {
		err = errors.Errorf("aacparser: adts sample rate index %d invalid", hdr.SampleRateIndex)
		return
	}
	hdr.FrameLen = int(frame[3]&0x3)<<11 | int(frame[4])<<3 | int(frame[5]>>5)
	hdr.Samples = (int(frame[6]&0x3) + 1) * 1024
	hdr.HeaderLen = 7
	if frame[1]&0x1 == 0 {
		hdr.HeaderLen = 9
	}
	if hdr.FrameLen < hdr.HeaderLen {
		err = errors.New("aacparser: adts framelen < hdrlen")
		return
	}
	return
}

// SplitADTSFrames cuts an ADTS stream into raw AAC frames. A truncated last frame
// is dropped.
func SplitADTSFrames(b []byte) (hdr ADTSHeader, frames [][]byte, err error) {
	first := true
	for len(b) > 0 {
		var h ADTSHeader
		if h, err = ParseADTSHeader(b); err != nil {
			return
		}
		if first {
			hdr = h
			first = false
		}
		if h.FrameLen > len(b) {
			break
		}
		frames = append(frames, b[h.HeaderLen:h.FrameLen])
		b = b[h.FrameLen:]
	}
	return
}

type CodecData struct {
	ConfigBytes []byte
	Config      mpeg4audio.AudioSpecificConfig
	BitRate_    int
}

func (self CodecData) Type() av.CodecType {
	return av.AAC
}

func (self CodecData) ExtraData() []byte {
	return self.ConfigBytes
}

func (self CodecData) ChannelLayout() av.ChannelLayout {
	return av.ChannelLayoutForCount(self.Config.ChannelCount)
}

func (self CodecData) SampleRate() int {
	return self.Config.SampleRate
}

func (self CodecData) SampleFormat() av.SampleFormat {
	return av.S16
}

func (self CodecData) BitRate() int {
	return self.BitRate_
}

func (self CodecData) FrameSize() int {
	return 1024
}

func (self CodecData) PacketDuration(data []byte) (dur time.Duration, err error) {
	dur = time.Duration(1024) * time.Second / time.Duration(self.Config.SampleRate)
	return
}

func NewCodecDataFromConfig(config mpeg4audio.AudioSpecificConfig) (self CodecData, err error) {
	var b []byte
	if b, err = config.Marshal(); err != nil {
		err = errors.Wrap(err, "aacparser: marshal AudioSpecificConfig")
		return
	}
	self.ConfigBytes = b
	self.Config = config
	return
}

func NewCodecDataFromConfigBytes(config []byte) (self CodecData, err error) {
	self.ConfigBytes = config
	if err = self.Config.Unmarshal(config); err != nil {
		err = errors.Wrap(err, "aacparser: parse AudioSpecificConfig")
		return
	}
	return
}
