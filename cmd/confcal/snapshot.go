package main

import (
	"strings"

	"github.com/spf13/cobra"

	"confcal/internal/capture"
)

func newSnapshotCmd(c *cli) *cobra.Command {
	var (
		target string
		typ    string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a PNG of a listing page served by a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := c.conf
			if target == "" {
				t := strings.ToLower(typ)
				if t == "" {
					t = conf.DefaultType
				}
				target = localURL(conf.Listen, "/"+t)
			}
			if out == "" {
				out = conf.Snapshot.Path
			}
			return capture.CaptureListingPNG(cmd.Context(), capture.CaptureOptions{
				URL:        target,
				OutputPath: out,
				Width:      conf.Snapshot.Width,
				Height:     conf.Snapshot.Height,
			})
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "Page to capture (default: local listing of --type)")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Technology type used when --url is empty")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output path (default from config)")
	return cmd
}
