package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avutil"
	"github.com/tyrese/avmux/av/pktque"
	"github.com/tyrese/avmux/format/aac"
	"github.com/tyrese/avmux/format/manifest"
	"github.com/tyrese/avmux/format/mux"
)

type MuxOptions struct {
	Format   string
	Output   string
	Realtime bool
	WaitKey  bool
	Duration time.Duration
	Title    string
	Author   string
}

func NewMuxCommand(root *rootOptions) *cobra.Command {
	opts := &MuxOptions{}

	cmd := &cobra.Command{
		Use:   "mux [flags] MANIFEST|FILE.aac",
		Short: "Mux the frames listed in a manifest or an ADTS file",
		Example: `  avmux mux -o out.asf clip.yaml
  avmux mux -f asf_stream -o - --realtime clip.yaml
  avmux mux -f mpeg -o out.mpg --duration 10s clip.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMux(cmd.Context(), root, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Format, "format", "f", "", "Output format (default: from the output extension)")
	flags.StringVarP(&opts.Output, "output", "o", "", "Output file, - for stdout")
	flags.BoolVar(&opts.Realtime, "realtime", false, "Release frames at their timestamps")
	flags.BoolVar(&opts.WaitKey, "wait-key", false, "Drop frames before the first video key frame")
	flags.DurationVar(&opts.Duration, "duration", 0, "Stop after this much media time")
	flags.StringVar(&opts.Title, "title", "", "Title, overrides meta.title")
	flags.StringVar(&opts.Author, "author", "", "Author, overrides meta.author")
	cmd.MarkFlagRequired("output")

	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return root.formatNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (self *MuxOptions) formatName(h *avutil.Handlers) (name string, err error) {
	if self.Format != "" {
		if _, ok := h.Find(self.Format); !ok {
			err = errors.Wrapf(avutil.ErrNotFound, "%q", self.Format)
		}
		return self.Format, err
	}
	handler, ok := h.FindByExt(filepath.Ext(self.Output))
	if !ok {
		err = errors.Errorf("can not guess the format of %q, use --format", self.Output)
		return
	}
	return handler.Name, nil
}

func (self *MuxOptions) filters() pktque.Filters {
	var filters pktque.Filters
	if self.WaitKey {
		filters = append(filters, &pktque.WaitKeyFrame{})
	}
	filters = append(filters, &pktque.FixTime{StartFromZero: true})
	if self.Duration > 0 {
		filters = append(filters, pktque.Limit{Duration: self.Duration})
	}
	return filters
}

type aacFile struct {
	*aac.Demuxer
	*os.File
}

// openInput reads a manifest, or a raw ADTS file when path ends in .aac.
func openInput(path string, root *rootOptions) (d av.Demuxer, err error) {
	if strings.EqualFold(filepath.Ext(path), aac.Ext) {
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return nil, errors.Wrap(err, "open input")
		}
		return aacFile{aac.NewDemuxer(f), f}, nil
	}
	return manifest.Open(path, root.log)
}

func runMux(ctx context.Context, root *rootOptions, opts *MuxOptions, path string, stdout, stderr io.Writer) (err error) {
	var name string
	if name, err = opts.formatName(root.handlers); err != nil {
		return
	}

	var input av.Demuxer
	if input, err = openInput(path, root); err != nil {
		return
	}
	if c, ok := input.(io.Closer); ok {
		defer c.Close()
	}
	var src av.Demuxer = &pktque.FilterDemuxer{Demuxer: input, Filter: opts.filters()}
	if opts.Realtime {
		src = pktque.NewWalltimeDemuxer(ctx, src)
	}

	var out io.Writer
	var file *os.File
	if opts.Output == "-" {
		// hide any Seek so a pipe is never seeked
		out = struct{ io.Writer }{stdout}
	} else {
		if file, err = os.Create(opts.Output); err != nil {
			return errors.Wrap(err, "create output")
		}
		defer file.Close()
		out = file
	}

	log := root.log.WithField("output", opts.Output)
	var m *mux.Muxer
	if m, err = root.handlers.NewMuxer(name, out, mux.WithLogger(log)); err != nil {
		return
	}
	cfg := root.cfg
	if opts.Title != "" {
		cfg.Metadata.Title = opts.Title
	}
	if opts.Author != "" {
		cfg.Metadata.Author = opts.Author
	}
	cfg.Apply(m.Format())

	start := time.Now()
	if err = avutil.CopyFileContext(ctx, m, src); err != nil {
		if err != context.Canceled {
			return errors.Wrapf(err, "mux %s", path)
		}
		log.Warn("interrupted, output finalized early")
	}
	if file != nil {
		if err = file.Close(); err != nil {
			return errors.Wrap(err, "close output")
		}
	}

	printSummary(stderr, opts.Output, name, m, time.Since(start))
	return nil
}

func printSummary(w io.Writer, output, name string, m *mux.Muxer, took time.Duration) {
	fmt.Fprintf(w, "%s %s (%s), %d bytes in %v\n",
		color.GreenString("wrote"), color.CyanString(output), name, m.W.Tell(), took.Round(time.Millisecond))
	for _, s := range m.Streams {
		fmt.Fprintf(w, "  #%d %-10v %6d frames %10d bytes %v\n", s.Idx, s.Type(), s.FrameCount, s.ByteCount, s.Duration)
	}
}
