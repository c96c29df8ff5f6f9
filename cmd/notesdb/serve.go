package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	grpcserver "secureNotes/internal/grpc"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC health endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open()
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					a.log.WithError(err).Error("close db")
				}
			}()

			shutdown, err := grpcserver.StartGRPC(a.cfg, d, a.log)
			if err != nil {
				return err
			}
			a.log.WithField("address", a.cfg.GRPC.Address).Info("gRPC health server listening")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				a.log.WithError(err).Error("shutdown")
			}
			return nil
		},
	}
}
