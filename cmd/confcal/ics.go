package main

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"confcal/internal/ics"
)

func newICSCmd(c *cli) *cobra.Command {
	var (
		f   filterFlags
		out string
	)

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the filtered conferences as an iCalendar feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(c.conf)
			l, err := a.listing(cmd.Context(), f)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			err = ics.WriteFeed(&buf, l.Flatten(), ics.FeedOptions{
				Name:     c.conf.TypeName(l.Type) + " conferences",
				Stamp:    a.now(),
				Location: a.loc,
			})
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			return os.WriteFile(out, buf.Bytes(), 0o644)
		},
	}
	addFilterFlags(cmd, &f)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
