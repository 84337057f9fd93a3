// Package config loads muxer settings from defaults, an optional avmux.yaml
// and AVMUX_* environment variables.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tyrese/avmux/format/asf"
	"github.com/tyrese/avmux/format/mpeg"
	"github.com/tyrese/avmux/format/mux"
	"github.com/tyrese/avmux/format/rm"
)

const EnvPrefix = "AVMUX"

type Metadata struct {
	Title     string
	Author    string
	Copyright string
	Comment   string
	Rating    string
}

type Config struct {
	PacketSize int
	Preroll    time.Duration
	PackSize   int
	LogLevel   logrus.Level
	Metadata   Metadata
}

// New returns a viper instance with the defaults, the environment bindings
// and the config search path set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("mux.packet_size", asf.DefaultPacketSize)
	v.SetDefault("mux.preroll_ms", int(asf.DefaultPreroll/time.Millisecond))
	v.SetDefault("mpeg.pack_size", mpeg.DefaultPackSize)
	v.SetDefault("log.level", "info")
	for _, key := range []string{"title", "author", "copyright", "comment", "rating"} {
		v.SetDefault("meta."+key, "")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.BindEnv("mux.packet_size", EnvPrefix+"_PACKET_SIZE")
	v.BindEnv("mux.preroll_ms", EnvPrefix+"_PREROLL_MS")
	v.BindEnv("mpeg.pack_size", EnvPrefix+"_PACK_SIZE")
	v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL")

	v.SetConfigName("avmux")
	v.SetConfigType("yaml")
	for _, path := range []string{".", "$HOME/.avmux", "/etc/avmux"} {
		v.AddConfigPath(os.ExpandEnv(path))
	}
	return v
}

// Load reads file, or searches the config path when file is empty. A missing
// config file is not an error.
func Load(v *viper.Viper, file string) (cfg Config, err error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			err = errors.Wrap(err, "config: read")
			return
		}
		err = nil
	}

	cfg.PacketSize = v.GetInt("mux.packet_size")
	cfg.Preroll = time.Duration(v.GetInt("mux.preroll_ms")) * time.Millisecond
	cfg.PackSize = v.GetInt("mpeg.pack_size")
	if cfg.LogLevel, err = logrus.ParseLevel(v.GetString("log.level")); err != nil {
		err = errors.Wrap(err, "config: log.level")
		return
	}
	cfg.Metadata = Metadata{
		Title:     v.GetString("meta.title"),
		Author:    v.GetString("meta.author"),
		Copyright: v.GetString("meta.copyright"),
		Comment:   v.GetString("meta.comment"),
		Rating:    v.GetString("meta.rating"),
	}

	if cfg.PacketSize < asf.MinPacketSize || cfg.PacketSize > asf.MaxPacketSize {
		err = errors.Errorf("config: mux.packet_size %d outside [%d, %d]", cfg.PacketSize, asf.MinPacketSize, asf.MaxPacketSize)
		return
	}
	if cfg.PackSize <= 0 || cfg.Preroll < 0 {
		err = errors.Errorf("config: invalid pack size %d or preroll %v", cfg.PackSize, cfg.Preroll)
		return
	}
	return
}

// Apply copies the settings a format understands into it. It must run
// before the muxer header is written.
func (self Config) Apply(f mux.Format) {
	switch f := f.(type) {
	case *asf.Format:
		f.PacketSize = self.PacketSize
		f.Preroll = self.Preroll
		f.Metadata = asf.Metadata(self.Metadata)
	case *rm.Format:
		f.Metadata = rm.Metadata{
			Title:     self.Metadata.Title,
			Author:    self.Metadata.Author,
			Copyright: self.Metadata.Copyright,
			Comment:   self.Metadata.Comment,
		}
	case *mpeg.Format:
		f.PackSize = self.PackSize
	}
}
