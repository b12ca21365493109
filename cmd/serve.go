package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/df07/go-cpu-pathtracer/web/server"
	"github.com/urfave/cli"
)

// Serve renders a scene progressively and serves the current frame over HTTP.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := sc.NewRenderer(logger)
	if err != nil {
		return err
	}
	defer r.Close()

	srv := server.NewServer(sc, r, server.Config{
		Gamma:     float32(ctx.Float64("gamma")),
		Scale:     ctx.Int("scale"),
		ScenesDir: ctx.String("scenes-dir"),
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return srv.Start(sigCtx, ctx.String("addr"))
}
