package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tyrese/avmux/av"
)

func TestTags(t *testing.T) {
	v := NewVideoCodecData(av.MSMPEG4V3, 320, 240, 25, 1, 0)
	assert.Equal(t, uint32(0x3334504d), v.Tag())

	v.Tag_ = 0x31564d57
	assert.Equal(t, uint32(0x31564d57), v.Tag())

	a := NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000)
	assert.Equal(t, uint32(0x55), a.Tag())
	assert.Equal(t, 1152, a.FrameSize())
	assert.Equal(t, 2, a.ChannelLayout().Count())
}

func TestFrameDuration(t *testing.T) {
	v := NewVideoCodecData(av.MJPEG, 320, 240, 25, 1, 0)
	assert.Equal(t, 40*time.Millisecond, av.FrameDuration(v))

	a := NewAudioCodecData(av.AC3, 48000, av.CH_STEREO, 192000)
	assert.Equal(t, 32*time.Millisecond, av.FrameDuration(a))

	a.FrameSize_ = 0
	assert.Equal(t, time.Duration(0), av.FrameDuration(a))
}
