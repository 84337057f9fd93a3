// Package codec holds plain codec parameter sets for streams whose encoder lives
// outside this module.
package codec

import (
	"github.com/tyrese/avmux/av"
)

type VideoCodecData struct {
	CodecType_ av.CodecType
	Width_     int
	Height_    int
	FPSNum     int
	FPSDen     int
	BitRate_   int
	Tag_       uint32
	ExtraData_ []byte
}

func (self VideoCodecData) Type() av.CodecType {
	return self.CodecType_
}

func (self VideoCodecData) Width() int {
	return self.Width_
}

func (self VideoCodecData) Height() int {
	return self.Height_
}

func (self VideoCodecData) Framerate() (int, int) {
	return self.FPSNum, self.FPSDen
}

func (self VideoCodecData) BitRate() int {
	return self.BitRate_
}

func (self VideoCodecData) Tag() uint32 {
	if self.Tag_ != 0 {
		return self.Tag_
	}
	return DefaultTag(self.CodecType_)
}

func (self VideoCodecData) ExtraData() []byte {
	return self.ExtraData_
}

func NewVideoCodecData(typ av.CodecType, width, height, fpsnum, fpsden, bitrate int) VideoCodecData {
	return VideoCodecData{
		CodecType_: typ,
		Width_:     width,
		Height_:    height,
		FPSNum:     fpsnum,
		FPSDen:     fpsden,
		BitRate_:   bitrate,
	}
}

type AudioCodecData struct {
	CodecType_     av.CodecType
	SampleRate_    int
	SampleFormat_  av.SampleFormat
	ChannelLayout_ av.ChannelLayout
	BitRate_       int
	FrameSize_     int
	BlockAlign     int
	Tag_           uint32
	ExtraData_     []byte
}

func (self AudioCodecData) Type() av.CodecType {
	return self.CodecType_
}

func (self AudioCodecData) SampleFormat() av.SampleFormat {
	return self.SampleFormat_
}

func (self AudioCodecData) ChannelLayout() av.ChannelLayout {
	return self.ChannelLayout_
}

func (self AudioCodecData) SampleRate() int {
	return self.SampleRate_
}

func (self AudioCodecData) BitRate() int {
	return self.BitRate_
}

func (self AudioCodecData) FrameSize() int {
	return self.FrameSize_
}

func (self AudioCodecData) BlockAlignment() int {
	return self.BlockAlign
}

func (self AudioCodecData) Tag() uint32 {
	if self.Tag_ != 0 {
		return self.Tag_
	}
	return DefaultTag(self.CodecType_)
}

func (self AudioCodecData) ExtraData() []byte {
	return self.ExtraData_
}

// NewAudioCodecData fills the frame size from the codec when the codec has a fixed one.
func NewAudioCodecData(typ av.CodecType, samplerate int, channels av.ChannelLayout, bitrate int) AudioCodecData {
	return AudioCodecData{
		CodecType_:     typ,
		SampleRate_:    samplerate,
		SampleFormat_:  av.S16,
		ChannelLayout_: channels,
		BitRate_:       bitrate,
		FrameSize_:     DefaultFrameSize(typ),
	}
}

// DefaultFrameSize is the number of samples per compressed frame.
func DefaultFrameSize(typ av.CodecType) int {
	switch typ {
	case av.MP2, av.MP3:
		return 1152
	case av.AC3:
		return 1536
	case av.AAC:
		return 1024
	case av.WMAV2:
		return 2048
	}
	return 0
}

func fourcc(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

// DefaultTag returns the BITMAPINFOHEADER FourCC (video) or WAVEFORMATEX format
// tag (audio) used for a codec.
func DefaultTag(typ av.CodecType) uint32 {
	switch typ {
	case av.H263:
		return fourcc("H263")
	case av.RV10:
		return fourcc("RV10")
	case av.MJPEG:
		return fourcc("MJPG")
	case av.MPEG1VIDEO:
		return fourcc("MPG1")
	case av.MPEG4:
		return fourcc("MP4S")
	case av.MSMPEG4V3:
		return fourcc("MP43")
	case av.WMV1:
		return fourcc("WMV1")
	case av.WMV2:
		return fourcc("WMV2")
	case av.H264:
		return fourcc("H264")
	case av.PCM_S16LE:
		return 0x0001
	case av.MP2:
		return 0x0050
	case av.MP3:
		return 0x0055
	case av.WMAV2:
		return 0x0161
	case av.AC3:
		return 0x2000
	case av.AAC:
		return 0x00ff
	}
	return 0
}
