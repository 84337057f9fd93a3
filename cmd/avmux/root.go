package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/config"
	"github.com/tyrese/avmux/format"
)

type rootOptions struct {
	ConfigFile string

	v        *viper.Viper
	cfg      config.Config
	log      *logrus.Entry
	handlers *avutil.Handlers
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{
		v:        config.New(),
		handlers: format.NewHandlers(),
	}

	cmd := &cobra.Command{
		Use:   "avmux",
		Short: "Mux encoded audio and video frames into container files",
		Long: `avmux writes frames that are already encoded into ASF, RealMedia, MPEG-1 system
and SWF files. Frames and stream parameters come from a YAML manifest.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: avmux.yaml in ., ~/.avmux or /etc/avmux)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	opts.v.BindPFlag("log.level", flags.Lookup("log-level"))

	cmd.AddCommand(NewMuxCommand(opts))
	cmd.AddCommand(NewFormatsCommand(opts))
	cmd.AddCommand(NewProbeCommand(opts))
	return cmd
}

func (self *rootOptions) load(cmd *cobra.Command) (err error) {
	if self.cfg, err = config.Load(self.v, self.ConfigFile); err != nil {
		return
	}
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(self.cfg.LogLevel)
	self.log = logrus.NewEntry(log)
	return
}

func (self *rootOptions) formatNames() (names []string) {
	for _, h := range self.handlers.List() {
		names = append(names, h.Name)
	}
	return
}
