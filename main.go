package main

import (
	"os"

	"github.com/df07/go-cpu-pathtracer/cmd"
	"github.com/urfave/cli"
)

func sceneFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Usage: "frame width (overrides the scene)",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "frame height (overrides the scene)",
		},
		cli.IntFlag{
			Name:  "threads, t",
			Usage: "number of render workers (default: logical CPU count)",
		},
		cli.IntFlag{
			Name:  "samples, s",
			Usage: "samples per pixel",
		},
		cli.IntFlag{
			Name:  "bounces",
			Usage: "maximum bounces per path",
		},
		cli.Uint64Flag{
			Name:  "seed",
			Usage: "render deterministically from this seed",
		},
		cli.BoolFlag{
			Name:  "no-aa",
			Usage: "disable sub-pixel jitter",
		},
		cli.BoolFlag{
			Name:  "no-bvh",
			Usage: "test every primitive instead of traversing the BVH",
		},
		cli.Float64Flag{
			Name:  "gamma",
			Value: 2.2,
			Usage: "output gamma",
		},
		cli.IntFlag{
			Name:  "scale",
			Value: 1,
			Usage: "integer upscaling of the output image",
		},
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "render scenes with a progressive CPU path tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringSliceFlag{
			Name:  "log-module",
			Usage: "set the level of one module, e.g. geometry=debug (repeatable)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to an image file",
			Description: `
Render a built-in scene (cornell, cube, spheres) or a TOML scene file and
write the result as BMP or PNG, chosen by the output file extension.`,
			ArgsUsage: "scene",
			Flags: append(sceneFlags(),
				cli.BoolFlag{
					Name:  "progressive, p",
					Usage: "render one sample per pass until the sample budget is spent",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:      "serve",
			Usage:     "render progressively and serve the current frame over HTTP",
			ArgsUsage: "scene",
			Flags: append(sceneFlags(),
				cli.StringFlag{
					Name:  "addr",
					Value: "localhost:8080",
					Usage: "listen address",
				},
				cli.StringFlag{
					Name:  "scenes-dir",
					Value: "scenes",
					Usage: "directory listed by /api/scenes",
				},
			),
			Action: cmd.Serve,
		},
		{
			Name:  "list-scenes",
			Usage: "list built-in scenes and scene files",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir",
					Value: "scenes",
					Usage: "directory to scan for .toml scene files",
				},
			},
			Action: cmd.ListScenes,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		cmd.Fatal(err)
	}
}
