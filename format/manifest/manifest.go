// Package manifest reads a YAML frame list and serves it as an av.Demuxer,
// so already encoded frames on disk can be fed to any muxer.
//
//	streams:
//	  - codec: MJPEG
//	    width: 320
//	    height: 240
//	    fps: 25
//	  - codec: AAC
//	    source: audio.aac
//	frames:
//	  - {stream: 0, time: 0s, key: true, file: f0.jpg}
//	  - {stream: 0, time: 40ms, key: true, file: f1.jpg}
package manifest

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/codec"
	"github.com/tyrese/avmux/codec/aacparser"
	"github.com/tyrese/avmux/codec/h264parser"
	"github.com/tyrese/avmux/format/aac"
	"gopkg.in/yaml.v3"
)

type Stream struct {
	Codec   string `yaml:"codec"`
	Bitrate int    `yaml:"bitrate"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
	FPSDen int `yaml:"fps_den"`

	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// Config is a file holding the decoder configuration: an
	// AVCDecoderConfigurationRecord for H264, an AudioSpecificConfig for AAC.
	Config string `yaml:"config"`
	// Source is an ADTS file whose frames are appended to the stream.
	Source string `yaml:"source"`
}

type Frame struct {
	Stream int           `yaml:"stream"`
	Time   time.Duration `yaml:"time"`
	Key    bool          `yaml:"key"`
	File   string        `yaml:"file"`
	Text   string        `yaml:"text"`
}

type Manifest struct {
	Streams []Stream `yaml:"streams"`
	Frames  []Frame  `yaml:"frames"`
}

type Demuxer struct {
	streams []av.CodecData
	pkts    []av.Packet
}

// Open loads a manifest file. Frame and config paths are relative to the
// manifest's directory.
func Open(path string, log *logrus.Entry) (self *Demuxer, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrap(err, "manifest: open")
		return
	}
	defer f.Close()
	return Decode(f, filepath.Dir(path), log)
}

func Decode(r io.Reader, base string, log *logrus.Entry) (self *Demuxer, err error) {
	var m Manifest
	if err = yaml.NewDecoder(r).Decode(&m); err != nil {
		err = errors.Wrap(err, "manifest: parse")
		return
	}
	return New(m, base, log)
}

func readFile(base, name string) (b []byte, err error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(base, name)
	}
	if b, err = os.ReadFile(name); err != nil {
		err = errors.Wrap(err, "manifest")
	}
	return
}

// New loads every frame into memory and builds the codec parameters.
func New(m Manifest, base string, log *logrus.Entry) (self *Demuxer, err error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if len(m.Streams) == 0 {
		err = errors.New("manifest: no streams")
		return
	}
	if len(m.Streams) > 127 {
		err = errors.Errorf("manifest: %d streams", len(m.Streams))
		return
	}

	self = &Demuxer{}
	for i, f := range m.Frames {
		if f.Stream < 0 || f.Stream >= len(m.Streams) {
			err = errors.Errorf("manifest: frame %d: no stream %d", i, f.Stream)
			return
		}
		pkt := av.Packet{Idx: int8(f.Stream), Time: f.Time, IsKeyFrame: f.Key}
		switch {
		case f.File != "":
			if pkt.Data, err = readFile(base, f.File); err != nil {
				return
			}
		case f.Text != "":
			pkt.Data = []byte(f.Text)
		default:
			err = errors.Errorf("manifest: frame %d: no data", i)
			return
		}
		self.pkts = append(self.pkts, pkt)
	}

	for i, st := range m.Streams {
		var cd av.CodecData
		if cd, err = self.codecData(i, st, base); err != nil {
			err = errors.Wrapf(err, "manifest: stream %d", i)
			return
		}
		self.streams = append(self.streams, cd)
	}

	sort.SliceStable(self.pkts, func(i, j int) bool {
		return self.pkts[i].Time < self.pkts[j].Time
	})
	log.WithFields(logrus.Fields{"streams": len(self.streams), "frames": len(self.pkts)}).Debug("manifest loaded")
	return
}

func (self *Demuxer) firstKeyFrame(idx int) (pkt av.Packet, ok bool) {
	for _, pkt = range self.pkts {
		if int(pkt.Idx) == idx && pkt.IsKeyFrame {
			return pkt, true
		}
	}
	return
}

func (self *Demuxer) codecData(idx int, st Stream, base string) (cd av.CodecData, err error) {
	typ, ok := av.ParseCodecType(strings.ToUpper(st.Codec))
	if !ok {
		err = errors.Errorf("unknown codec %q", st.Codec)
		return
	}

	switch typ {
	case av.H264:
		var h h264parser.CodecData
		if st.Config != "" {
			var b []byte
			if b, err = readFile(base, st.Config); err != nil {
				return
			}
			h, err = h264parser.NewCodecDataFromAVCDecoderConfRecord(b)
		} else if pkt, ok := self.firstKeyFrame(idx); ok {
			h, err = h264parser.PktToCodecData(pkt)
		} else {
			err = errors.New("h264 needs a config record or a key frame")
		}
		if err != nil {
			return
		}
		h.BitRate_ = st.Bitrate
		cd = h
		return

	case av.AAC:
		var a aacparser.CodecData
		switch {
		case st.Source != "":
			if a, err = self.readADTS(idx, base, st.Source); err != nil {
				return
			}
		case st.Config != "":
			var b []byte
			if b, err = readFile(base, st.Config); err != nil {
				return
			}
			if a, err = aacparser.NewCodecDataFromConfigBytes(b); err != nil {
				return
			}
		default:
			err = errors.New("aac needs an ADTS source or a config")
			return
		}
		a.BitRate_ = st.Bitrate
		cd = a
		return
	}

	if typ.IsVideo() {
		den := st.FPSDen
		if den == 0 {
			den = 1
		}
		cd = codec.NewVideoCodecData(typ, st.Width, st.Height, st.FPS, den, st.Bitrate)
		return
	}

	if st.SampleRate <= 0 {
		err = errors.Errorf("%v needs a sample rate", typ)
		return
	}
	channels := st.Channels
	if channels == 0 {
		channels = 1
	}
	cd = codec.NewAudioCodecData(typ, st.SampleRate, av.ChannelLayoutForCount(channels), st.Bitrate)
	return
}

// readADTS appends every frame of an ADTS file to stream idx.
func (self *Demuxer) readADTS(idx int, base, name string) (cd aacparser.CodecData, err error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(base, name)
	}
	var f *os.File
	if f, err = os.Open(name); err != nil {
		err = errors.Wrap(err, "manifest")
		return
	}
	defer f.Close()

	d := aac.NewDemuxer(f)
	var streams []av.CodecData
	if streams, err = d.Streams(); err != nil {
		return
	}
	cd = streams[0].(aacparser.CodecData)
	for {
		var pkt av.Packet
		if pkt, err = d.ReadPacket(); err != nil {
			if err == io.EOF {
				err = nil
			}
			return
		}
		pkt.Idx = int8(idx)
		self.pkts = append(self.pkts, pkt)
	}
}

func (self *Demuxer) Streams() ([]av.CodecData, error) {
	return self.streams, nil
}

// ReadPacket returns frames in time order, then io.EOF.
func (self *Demuxer) ReadPacket() (pkt av.Packet, err error) {
	if len(self.pkts) == 0 {
		err = io.EOF
		return
	}
	pkt, self.pkts = self.pkts[0], self.pkts[1:]
	return
}
