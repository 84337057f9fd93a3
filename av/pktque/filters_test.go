package pktque

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/codec"
)

type sliceDemuxer struct {
	streams []av.CodecData
	pkts    []av.Packet
}

func (self *sliceDemuxer) Streams() ([]av.CodecData, error) {
	return self.streams, nil
}

func (self *sliceDemuxer) ReadPacket() (pkt av.Packet, err error) {
	if len(self.pkts) == 0 {
		err = io.EOF
		return
	}
	pkt, self.pkts = self.pkts[0], self.pkts[1:]
	return
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func source(pkts ...av.Packet) *sliceDemuxer {
	return &sliceDemuxer{
		streams: []av.CodecData{
			codec.NewVideoCodecData(av.MJPEG, 320, 240, 25, 1, 0),
			codec.NewAudioCodecData(av.MP3, 44100, av.CH_STEREO, 128000),
		},
		pkts: pkts,
	}
}

func readAll(t *testing.T, d av.Demuxer) (pkts []av.Packet) {
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
		pkts = append(pkts, pkt)
	}
}

func times(pkts []av.Packet) (tm []time.Duration) {
	for _, pkt := range pkts {
		tm = append(tm, pkt.Time)
	}
	return
}

func TestWaitKeyFrameAndRebase(t *testing.T) {
	d := &FilterDemuxer{
		Demuxer: source(
			av.Packet{Idx: 1, Time: ms(1000)},
			av.Packet{Idx: 0, Time: ms(1040)},
			av.Packet{Idx: 0, Time: ms(1080), IsKeyFrame: true},
			av.Packet{Idx: 1, Time: ms(1090)},
			av.Packet{Idx: 0, Time: ms(1120)},
		),
		Filter: Filters{&WaitKeyFrame{}, &FixTime{StartFromZero: true}},
	}
	streams, err := d.Streams()
	require.NoError(t, err)
	assert.Len(t, streams, 2)

	pkts := readAll(t, d)
	assert.Equal(t, []time.Duration{0, ms(10), ms(40)}, times(pkts))
	assert.True(t, pkts[0].IsKeyFrame)
}

func TestWaitKeyFrameWithoutVideo(t *testing.T) {
	src := source(av.Packet{Idx: 0, Time: 0})
	src.streams = src.streams[1:]
	d := &FilterDemuxer{Demuxer: src, Filter: &WaitKeyFrame{}}
	assert.Len(t, readAll(t, d), 1)
}

func TestMakeIncrement(t *testing.T) {
	d := &FilterDemuxer{
		Demuxer: source(
			av.Packet{Time: ms(100)},
			av.Packet{Time: ms(140)},
			av.Packet{Time: ms(20)},
			av.Packet{Time: ms(60)},
			av.Packet{Time: ms(5000)},
		),
		Filter: &FixTime{MakeIncrement: true},
	}
	assert.Equal(t, []time.Duration{ms(100), ms(140), ms(140), ms(180), ms(180)}, times(readAll(t, d)))
}

func TestLimit(t *testing.T) {
	d := &FilterDemuxer{
		Demuxer: source(av.Packet{Time: 0}, av.Packet{Time: ms(40)}, av.Packet{Time: ms(80)}),
		Filter:  Limit{Duration: ms(80)},
	}
	assert.Equal(t, []time.Duration{0, ms(40)}, times(readAll(t, d)))
}

func TestWalltimeDemuxer(t *testing.T) {
	d := NewWalltimeDemuxer(context.Background(), source(av.Packet{Time: 0}, av.Packet{Time: ms(30)}))
	start := time.Now()
	assert.Len(t, readAll(t, d), 2)
	assert.True(t, time.Since(start) >= ms(30))
}

func TestWalltimeDemuxerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewWalltimeDemuxer(ctx, source(av.Packet{Time: 0}, av.Packet{Time: time.Hour}))
	_, err := d.ReadPacket()
	require.NoError(t, err)

	time.AfterFunc(ms(10), cancel)
	_, err = d.ReadPacket()
	assert.Equal(t, context.Canceled, err)
}
