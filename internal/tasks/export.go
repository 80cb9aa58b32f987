package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ytbatch/internal/services"
	"ytbatch/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	OutputDir  string  // Base output directory (default: playlist_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5)
	RateLimit  float64 // Requests per second against the extractor (default: 5)
	UseCache   bool    // Serve from the local playlist cache where possible
}

// PlaylistExportResult records the outcome for one exported playlist.
type PlaylistExportResult struct {
	Ref     string `json:"ref"`
	Title   string `json:"title"`
	Videos  int    `json:"videos"`
	File    string `json:"file,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"manifest_path,omitempty"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	ref    string
	export *services.PlaylistExport
}

// BulkExport snapshots multiple playlists to JSON files concurrently with
// rate limiting and progress tracking. Exports only read through the
// extractor, so they cost no remote quota and can run freely alongside
// paused batches.
func (e *Engine) BulkExport(ctx context.Context, progress chan<- ProgressUpdate, refs []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no playlists given", shared.ErrInvalidInput)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playlist_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(refs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(refs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	rs := &runState{progress: progress, total: len(refs)}

	jobs := make(chan exportJob, len(refs))
	results := make(chan PlaylistExportResult, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		for i, ref := range refs {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.send(rs, exportingUpdate(i+1, len(refs), ref))
			export, err := e.extractor.FetchPlaylist(ctx, ref, opts.UseCache)
			if err != nil {
				results <- PlaylistExportResult{
					Ref:   ref,
					Title: fmt.Sprintf("Unknown (%s)", ref),
					Error: fmt.Sprintf("failed to fetch playlist: %v", err),
				}
				continue
			}

			jobs <- exportJob{ref: ref, export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.send(rs, exportDoneUpdate(completed, len(refs), res.Title, res.Videos))
		} else {
			result.FailedExports++
			e.send(rs, exportFailedUpdate(completed, len(refs), res.Ref, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker drains the jobs channel, writing one JSON snapshot per
// playlist.
func (e *Engine) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- PlaylistExportResult, outputDir string) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- writeExportFile(job, outputDir)
	}
}

func writeExportFile(job exportJob, outputDir string) PlaylistExportResult {
	result := PlaylistExportResult{
		Ref:    job.ref,
		Title:  job.export.Playlist.Title,
		Videos: len(job.export.VideoIDs),
	}

	data, err := shared.MarshalJSON(job.export, true)
	if err != nil {
		result.Error = fmt.Sprintf("JSON marshal failed: %v", err)
		return result
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s.json", job.export.Playlist.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		result.Error = fmt.Sprintf("JSON write failed: %v", err)
		return result
	}

	result.File = path
	result.Success = true
	return result
}
