package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/imageio"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderFrame renders a scene to an image file. In progressive mode passes
// run until the sample budget is spent or the process is interrupted; the
// converged part is still written out.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("progressive") {
		sc.Settings.Progressive = ctx.Bool("progressive")
	}

	// fail on a bad output path before spending time rendering
	out := ctx.String("out")
	if _, err := imageio.FormatFromPath(out); err != nil {
		return err
	}

	r, err := sc.NewRenderer(logger)
	if err != nil {
		return err
	}
	defer r.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	passes := 0
	for {
		if err := r.RenderContext(sigCtx); err != nil {
			if sigCtx.Err() == nil {
				return err
			}
			logger.Notice("render interrupted")
			break
		}
		passes++
		if !sc.Settings.Progressive || r.Done() {
			break
		}
		if passes%10 == 0 {
			logger.Infof("sample %d/%d", r.ProgressiveIndex()-1, sc.Settings.Samples)
		}
	}
	elapsed := time.Since(start)

	img := imageio.Upscale(r.Image(float32(ctx.Float64("gamma"))), ctx.Int("scale"))
	if err := imageio.Save(out, img); err != nil {
		return err
	}

	displayFrameStats(r.LastStats(), passes, elapsed)
	logger.Noticef("saved %s", out)
	return nil
}

func displayFrameStats(stats renderer.RenderStats, passes int, elapsed time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Pixels", "Samples", "% of frame", "Pass time"})

	total := stats.TotalPixels()
	for _, w := range stats.Workers {
		percent := 0.0
		if total > 0 {
			percent = 100 * float64(w.Pixels) / float64(total)
		}
		table.Append([]string{
			fmt.Sprintf("%d", w.Worker),
			fmt.Sprintf("%d", w.Pixels),
			fmt.Sprintf("%d", w.Samples),
			fmt.Sprintf("%02.1f %%", percent),
			w.Duration.String(),
		})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d passes", passes),
		"",
		fmt.Sprintf("%.0f/s", stats.SamplesPerSecond()),
		"TOTAL",
		elapsed.String(),
	})

	table.Render()
	logger.Noticef("last pass statistics\n%s", buf.String())
}
