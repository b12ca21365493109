package cmd

import (
	"os"

	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("pathtracer")

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	for _, spec := range ctx.GlobalStringSlice("log-module") {
		module, level, err := log.ParseModuleLevel(spec)
		if err != nil {
			return err
		}
		log.SetModuleLevel(module, level)
	}
	return nil
}

// Fatal logs err and exits with a non-zero status
func Fatal(err error) {
	logger.Error(err)
	os.Exit(1)
}
