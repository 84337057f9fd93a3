package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// mimetype looks at no more than this by default
const sniffLen = 3072

func NewProbeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "Tell which format a file was written in",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := probe(cmd.OutOrStdout(), root, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func probe(w io.Writer, root *rootOptions, path string) (err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return errors.Wrap(err, "probe")
	}
	defer f.Close()

	b := make([]byte, sniffLen)
	var n int
	if n, err = io.ReadFull(f, b); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrapf(err, "probe %s", path)
	}
	err = nil

	handler, mime, ok := root.handlers.Detect(b[:n])
	if !ok {
		fmt.Fprintf(w, "%s: %s (%s)\n", path, color.YellowString("unknown"), mime.String())
		return
	}
	root.log.WithField("file", path).Debugf("detected %s", handler.Name)
	fmt.Fprintf(w, "%s: %s (%s)\n", path, color.CyanString(handler.Name), mime.String())
	return
}
