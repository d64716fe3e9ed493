package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/oklog/pkg/group"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-bluem/internal/server"
	"github.com/sirosfoundation/go-bluem/internal/storage"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

func (a *app) serveCmd() *cobra.Command {
	var outbox string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive signed status updates on the webhook endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(cmd)
			if err != nil {
				return err
			}
			integration, err := cfg.Integration()
			if err != nil {
				return err
			}
			keys, err := cfg.TrustedKeys(time.Now())
			if err != nil {
				return err
			}

			sinks := []webhook.Sink{server.LogSink(a.logger)}
			store, err := a.store(cmd)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close(context.Background())
				sinks = append([]webhook.Sink{storage.Sink(store)}, sinks...)
			}
			if outbox != "" {
				dir, err := server.NewDirSink(outbox)
				if err != nil {
					return err
				}
				sinks = append([]webhook.Sink{dir}, sinks...)
			}
			sink := server.Sinks(sinks...)

			srv, err := server.New(cfg, webhook.NewVerifier(keys, integration.Environment()), sink, a.logger)
			if err != nil {
				return err
			}

			var g group.Group
			{
				g.Add(srv.Start, func(error) {
					ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
					defer cancel()
					if err := srv.Shutdown(ctx); err != nil {
						a.logger.Error("shutdown", "error", err)
					}
				})
			}
			{
				// Waits for ctrl-C or the end of the command context.
				ctx, cancel := context.WithCancel(cmd.Context())
				g.Add(func() error {
					c := make(chan os.Signal, 1)
					signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(c)
					select {
					case sig := <-c:
						a.logger.Info("received signal", "signal", sig.String())
					case <-ctx.Done():
					}
					return nil
				}, func(error) {
					cancel()
				})
			}
			return g.Run()
		},
	}
	cmd.Flags().StringVar(&outbox, "outbox", "", "Directory receiving the signed XML of every accepted notification")
	return cmd
}
