package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/amestrin/crosstune/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the conversion HTTP service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Server.Host
	if flag := cmd.String("host"); flag != "" {
		host = flag
	}
	port := r.config.Server.Port
	if flag := cmd.Int("port"); flag != 0 {
		port = flag
	}

	st, err := r.buildStack()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(host, port, st.registry, r.logger)
	return srv.Start(ctx)
}
