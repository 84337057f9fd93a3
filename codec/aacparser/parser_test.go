package aacparser

import (
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrese/avmux/av"
)

func adtsFrame(payload int) []byte {
	framelen := payload + 7
	b := []byte{0xff, 0xf1, 0x50, 0x80, 0, 0, 0xfc}
	// AAC-LC, 44100Hz, stereo
	b[2] = 1<<6 | 4<<2
	b[3] = 2<<6 | byte(framelen>>11)&0x3
	b[4] = byte(framelen >> 3)
	b[5] = byte(framelen)&0x7<<5 | 0x1f
	return append(b, make([]byte, payload)...)
}

func TestParseADTSHeader(t *testing.T) {
	hdr, err := ParseADTSHeader(adtsFrame(100))
	require.NoError(t, err)
	assert.Equal(t, 2, hdr.ObjectType)
	assert.Equal(t, 44100, hdr.SampleRate())
	assert.Equal(t, 2, hdr.ChannelConfig)
	assert.Equal(t, 107, hdr.FrameLen)
	assert.Equal(t, 7, hdr.HeaderLen)
	assert.Equal(t, 1024, hdr.Samples)

	_, err = ParseADTSHeader([]byte{0, 1, 2, 3, 4, 5, 6})
	assert.Error(t, err)
}

func TestSplitADTSFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, adtsFrame(10)...)
	stream = append(stream, adtsFrame(20)...)
	stream = append(stream, adtsFrame(30)[:20]...)

	hdr, frames, err := SplitADTSFrames(stream)
	require.NoError(t, err)
	assert.Equal(t, 44100, hdr.SampleRate())
	require.Len(t, frames, 2)
	assert.Len(t, frames[0], 10)
	assert.Len(t, frames[1], 20)
}

func TestCodecData(t *testing.T) {
	c, err := NewCodecDataFromConfig(mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   48000,
		ChannelCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x90}, c.ExtraData())
	assert.Equal(t, av.CH_STEREO, c.ChannelLayout())

	c2, err := NewCodecDataFromConfigBytes(c.ConfigBytes)
	require.NoError(t, err)
	assert.Equal(t, 48000, c2.SampleRate())
	assert.Equal(t, 1024, c2.FrameSize())
}
