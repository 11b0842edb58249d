package main

import (
	"github.com/spf13/cobra"

	"confcal/internal/termview"
)

func newListCmd(c *cli) *cobra.Command {
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print conferences grouped by year and month",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(c.conf)
			l, err := a.listing(cmd.Context(), f)
			if err != nil {
				return err
			}
			return termview.Render(cmd.OutOrStdout(), c.conf.TypeName(l.Type)+" conferences", l)
		},
	}
	addFilterFlags(cmd, &f)
	return cmd
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "Technology type (default from config)")
	cmd.Flags().StringVarP(&f.country, "country", "c", "", "Only conferences in this country")
	cmd.Flags().BoolVar(&f.past, "past", false, "Include past conferences")
	cmd.Flags().BoolVar(&f.cfp, "cfp", false, "Only conferences with an open call for papers")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort by startDate or cfpEndDate")
}
