package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"ytbatch/internal/formatter"
	"ytbatch/internal/shared"
	"ytbatch/internal/tasks"
)

// Export fetches playlists through the zero-cost extractor and writes each
// as a JSON file, plus a manifest, to the output directory.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one playlist is required", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := r.engine.BulkExport(ctx, progress, refs, tasks.BulkExportOpts{
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Extractor.RateLimit,
		UseCache:   !cmd.Bool("no-cache"),
	})
	close(progress)
	<-drained

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.ExportReport(result))
}
