
// Package av defines the basic data structures shared by the container muxers:
// codec parameters, compressed packets and the Muxer interface.
package av

import (
	"fmt"
	"time"
)

// Audio sample format.
type SampleFormat uint8

const (
	U8  = SampleFormat(iota + 1) // 8-bit unsigned integer
	S16                          // signed 16-bit integer
	S32                          // signed 32-bit integer
	FLT                          // 32-bit float
	DBL                          // 64-bit float
)

func (self SampleFormat) BytesPerSample() int {
	switch self {
	case U8:
		return 1
	case S16:
		return 2
	case FLT, S32:
		return 4
	case DBL:
		return 8
	default:
		return 0
	}
}

func (self SampleFormat) String() string {
	switch self {
	case U8:
		return "U8"
	case S16:
		return "S16"
	case S32:
		return "S32"
	case FLT:
		return "FLT"
	case DBL:
		return "DBL"
	default:
		return "?"
	}
}

// Audio channel layout.
type ChannelLayout uint16

func (self ChannelLayout) String() string {
	return fmt.Sprintf("%dch", self.Count())
}

const (
	CH_FRONT_CENTER = ChannelLayout(1 << iota)
	CH_FRONT_LEFT
	CH_FRONT_RIGHT
	CH_BACK_CENTER
	CH_BACK_LEFT
	CH_BACK_RIGHT
	CH_SIDE_LEFT
	CH_SIDE_RIGHT
	CH_LOW_FREQ
	CH_NR

	CH_MONO     = ChannelLayout(CH_FRONT_CENTER)
	CH_STEREO   = ChannelLayout(CH_FRONT_LEFT | CH_FRONT_RIGHT)
	CH_2_1      = ChannelLayout(CH_STEREO | CH_BACK_CENTER)
	CH_2POINT1  = ChannelLayout(CH_STEREO | CH_LOW_FREQ)
	CH_SURROUND = ChannelLayout(CH_STEREO | CH_FRONT_CENTER)
	CH_3POINT1  = ChannelLayout(CH_SURROUND | CH_LOW_FREQ)
	CH_5POINT1  = ChannelLayout(CH_SURROUND | CH_BACK_LEFT | CH_BACK_RIGHT | CH_LOW_FREQ)
)

func (self ChannelLayout) Count() (n int) {
	for self != 0 {
		n++
		self = (self - 1) & self
	}
	return
}

// ChannelLayoutForCount returns the usual layout for a channel count.
func ChannelLayoutForCount(n int) ChannelLayout {
	switch n {
	case 1:
		return CH_MONO
	case 2:
		return CH_STEREO
	case 3:
		return CH_SURROUND
	case 4:
		return CH_3POINT1
	case 6:
		return CH_5POINT1
	}
	var l ChannelLayout
	for i := 0; i < n && i < 9; i++ {
		l |= 1 << uint(i)
	}
	return l
}

// Video/Audio codec type.
type CodecType uint32

var (
	H263       = MakeVideoCodecType(avCodecTypeMagic + 1)
	RV10       = MakeVideoCodecType(avCodecTypeMagic + 2)
	MJPEG      = MakeVideoCodecType(avCodecTypeMagic + 3)
	MPEG1VIDEO = MakeVideoCodecType(avCodecTypeMagic + 4)
	MPEG4      = MakeVideoCodecType(avCodecTypeMagic + 5)
	MSMPEG4V3  = MakeVideoCodecType(avCodecTypeMagic + 6)
	WMV1       = MakeVideoCodecType(avCodecTypeMagic + 7)
	WMV2       = MakeVideoCodecType(avCodecTypeMagic + 8)
	H264       = MakeVideoCodecType(avCodecTypeMagic + 9)

	MP2       = MakeAudioCodecType(avCodecTypeMagic + 1)
	MP3       = MakeAudioCodecType(avCodecTypeMagic + 2)
	AC3       = MakeAudioCodecType(avCodecTypeMagic + 3)
	PCM_S16LE = MakeAudioCodecType(avCodecTypeMagic + 4)
	WMAV2     = MakeAudioCodecType(avCodecTypeMagic + 5)
	AAC       = MakeAudioCodecType(avCodecTypeMagic + 6)
)

const codecTypeAudioBit = 0x1
const codecTypeOtherBits = 1

var codecTypeNames = map[CodecType]string{
	H263:       "H263",
	RV10:       "RV10",
	MJPEG:      "MJPEG",
	MPEG1VIDEO: "MPEG1VIDEO",
	MPEG4:      "MPEG4",
	MSMPEG4V3:  "MSMPEG4V3",
	WMV1:       "WMV1",
	WMV2:       "WMV2",
	H264:       "H264",
	MP2:        "MP2",
	MP3:        "MP3",
	AC3:        "AC3",
	PCM_S16LE:  "PCM_S16LE",
	WMAV2:      "WMAV2",
	AAC:        "AAC",
}

func (self CodecType) String() string {
	return codecTypeNames[self]
}

// ParseCodecType looks a codec type up by its String() name.
func ParseCodecType(name string) (typ CodecType, ok bool) {
	for t, n := range codecTypeNames {
		if n == name {
			return t, true
		}
	}
	return
}

func (self CodecType) IsAudio() bool {
	return self&codecTypeAudioBit != 0
}

func (self CodecType) IsVideo() bool {
	return self&codecTypeAudioBit == 0
}

// Make a new audio codec type.
func MakeAudioCodecType(base uint32) (c CodecType) {
	c = CodecType(base)<<codecTypeOtherBits | CodecType(codecTypeAudioBit)
	return
}

// Make a new video codec type.
func MakeVideoCodecType(base uint32) (c CodecType) {
	c = CodecType(base) << codecTypeOtherBits
	return
}

const avCodecTypeMagic = 233333

// CodecData holds the parameters of one elementary stream that a container needs
// in its header. It can be converted to VideoCodecData or AudioCodecData using:
//
//	codecdata.(AudioCodecData) or codecdata.(VideoCodecData)
type CodecData interface {
	Type() CodecType // Video/Audio codec type
}

type VideoCodecData interface {
	CodecData
	Width() int            // Video width
	Height() int           // Video height
	Framerate() (int, int) // Video FPS num and denom
	BitRate() int          // bits per second, 0 if unknown
}

type AudioCodecData interface {
	CodecData
	SampleFormat() SampleFormat   // audio sample format
	SampleRate() int              // audio sample rate
	ChannelLayout() ChannelLayout // audio channel layout
	BitRate() int                 // bits per second, 0 if unknown
	FrameSize() int               // samples per compressed frame, 0 if variable
}

// ExtraDataCodecData is implemented by codecs carrying decoder configuration bytes.
type ExtraDataCodecData interface {
	ExtraData() []byte
}

// TagCodecData is implemented by codecs with an explicit FourCC or wave format tag.
type TagCodecData interface {
	Tag() uint32
}

// FrameDuration returns the duration of one frame of a stream, or 0 when it can not be
// derived from the codec parameters.
func FrameDuration(codec CodecData) time.Duration {
	switch c := codec.(type) {
	case VideoCodecData:
		num, den := c.Framerate()
		if num <= 0 || den <= 0 {
			return 0
		}
		return time.Second * time.Duration(den) / time.Duration(num)
	case AudioCodecData:
		if c.SampleRate() <= 0 || c.FrameSize() <= 0 {
			return 0
		}
		return time.Second * time.Duration(c.FrameSize()) / time.Duration(c.SampleRate())
	}
	return 0
}

type PacketWriter interface {
	WritePacket(Packet) error
}

type PacketReader interface {
	ReadPacket() (Packet, error)
}

// Demuxer can read compressed audio/video packets from container formats or a frame list.
type Demuxer interface {
	PacketReader                   // read compressed audio/video packets
	Streams() ([]CodecData, error) // reads the file header, contains video/audio meta infomations
}

// Muxer describes the steps of writing compressed audio/video packets into container formats like ASF/RM/MPEG/SWF.
type Muxer interface {
	WriteHeader([]CodecData) error // write the file header
	PacketWriter                   // write compressed audio/video packets
	WriteTrailer() error           // finish writing file, this func can be called only once
}

// Muxer with Close() method
type MuxCloser interface {
	Muxer
	Close() error
}

// Packet stores one compressed audio/video access unit.
type Packet struct {
	IsKeyFrame bool          // video packet is key frame
	Idx        int8          // stream index in container format
	Time       time.Duration // packet presentation time
	Duration   time.Duration // packet duration, 0 if unknown
	Data       []byte        // packet data
}
