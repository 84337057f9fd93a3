package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tyrese/avmux/av"
	"github.com/tyrese/avmux/av/avutil"
)

func NewFormatsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the output formats and their codecs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printFormats(cmd.OutOrStdout(), root.handlers.List())
			return nil
		},
	}
}

func codecList(types []av.CodecType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}

func printFormats(w io.Writer, handlers []avutil.RegisterHandler) {
	name := color.New(color.FgCyan).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXT\tMIME\tAUDIO\tVIDEO")
	for _, h := range handlers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name(h.Name), h.Ext, h.Mime, codecList(h.AudioCodecs), codecList(h.VideoCodecs))
	}
	tw.Flush()
}
