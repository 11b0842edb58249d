package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"confcal/internal/capture"
	appLog "confcal/internal/log"
	"confcal/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and API with scheduled refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				c.conf.Listen = listen
			}
			return runServe(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(parent context.Context, c *cli) error {
	conf := c.conf
	appLog.Info("confcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"default_type", conf.DefaultType,
		"types", len(conf.Types),
		"year_offset", *conf.YearOffset,
		"year_span", conf.YearSpan,
		"snapshot", conf.Snapshot.Enabled,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(conf)
	srv := web.NewServer(conf, a.catalog)

	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	addr := ln.Addr().String()

	refresh := func() {
		a.catalog.RefreshAll(ctx, conf.DefaultType)
		if conf.Snapshot.Enabled {
			snapshot(ctx, a, addr)
		}
	}

	sched := cron.New(cron.WithLocation(a.loc))
	if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
		ln.Close()
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	// Runs after Listen so the startup snapshot reaches a bound socket.
	go refresh()

	err = srv.Serve(ctx, ln)
	appLog.Info("confcal exiting")
	return err
}

func snapshot(ctx context.Context, a *app, addr string) {
	opts := capture.CaptureOptions{
		URL:        localURL(addr, "/"+a.conf.DefaultType),
		OutputPath: a.conf.Snapshot.Path,
		Width:      a.conf.Snapshot.Width,
		Height:     a.conf.Snapshot.Height,
	}
	if err := capture.CaptureListingPNG(ctx, opts); err != nil {
		appLog.Warn("snapshot failed", err, "url", opts.URL)
		return
	}
	appLog.Info("snapshot written", "path", opts.OutputPath)
}
