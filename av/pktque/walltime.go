package pktque

import (
	"context"
	"time"

	"github.com/tyrese/avmux/av"
)

// WalltimeDemuxer releases packets no faster than their timestamps, for
// feeding live outputs. ReadPacket returns the context error once ctx is
// done.
type WalltimeDemuxer struct {
	av.Demuxer
	ctx       context.Context
	firsttime time.Time
}

func (self *WalltimeDemuxer) ReadPacket() (pkt av.Packet, err error) {
	if err = self.ctx.Err(); err != nil {
		return
	}
	if pkt, err = self.Demuxer.ReadPacket(); err != nil {
		return
	}
	if self.firsttime.IsZero() {
		self.firsttime = time.Now()
	}
	delta := time.Until(self.firsttime.Add(pkt.Time))
	if delta <= 0 {
		return
	}
	t := time.NewTimer(delta)
	defer t.Stop()
	select {
	case <-t.C:
	case <-self.ctx.Done():
		err = self.ctx.Err()
	}
	return
}

func NewWalltimeDemuxer(ctx context.Context, demuxer av.Demuxer) *WalltimeDemuxer {
	return &WalltimeDemuxer{Demuxer: demuxer, ctx: ctx}
}
