package tasks

import (
	"context"
	"fmt"
	"strings"

	"ytbatch/internal/journal"
	"ytbatch/internal/shared"
)

// PlanCopy builds one task per source playlist, each writing a fresh target.
// Titles are resolved up front so the journal is readable before any task
// runs; the video lists themselves are resolved at execution time.
func (e *Engine) PlanCopy(ctx context.Context, refs []string) ([]journal.TaskSpec, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no source playlists given", shared.ErrInvalidInput)
	}

	specs := make([]journal.TaskSpec, 0, len(refs))
	for _, ref := range refs {
		export, err := e.extractor.FetchPlaylist(ctx, ref, true)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source %s: %w", ref, err)
		}
		specs = append(specs, journal.TaskSpec{
			SourceRef:   ref,
			SourceTitle: export.Playlist.Title,
		})
	}
	return specs, nil
}

// PlanMerge builds a single task that writes the concatenation of several
// source playlists into one target. The combined video list is pinned on the
// task so a resumed run sees the same plan even if the sources change. The
// first occurrence of a repeated video wins.
func (e *Engine) PlanMerge(ctx context.Context, refs []string, targetTitle string) ([]journal.TaskSpec, error) {
	if len(refs) < 2 {
		return nil, fmt.Errorf("%w: merge needs at least two source playlists", shared.ErrInvalidInput)
	}

	seen := make(map[string]struct{})
	var merged []string
	var titles []string
	for _, ref := range refs {
		export, err := e.extractor.FetchPlaylist(ctx, ref, true)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source %s: %w", ref, err)
		}
		titles = append(titles, export.Playlist.Title)
		for _, id := range export.VideoIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: all source playlists are empty", shared.ErrInvalidInput)
	}

	if targetTitle == "" {
		targetTitle = strings.Join(titles, " + ")
	}
	return []journal.TaskSpec{{
		SourceRef:   strings.Join(refs, "+"),
		SourceTitle: strings.Join(titles, " + "),
		TargetTitle: targetTitle,
		VideoIDs:    merged,
	}}, nil
}

// PlanSplit builds one task per chunk of a large source playlist, pinning
// each chunk's videos so the pieces stay disjoint across resumes.
func (e *Engine) PlanSplit(ctx context.Context, ref string, chunkSize int) ([]journal.TaskSpec, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", shared.ErrInvalidInput)
	}

	export, err := e.extractor.FetchPlaylist(ctx, ref, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source %s: %w", ref, err)
	}
	if len(export.VideoIDs) == 0 {
		return nil, fmt.Errorf("%w: source playlist is empty", shared.ErrInvalidInput)
	}
	if len(export.VideoIDs) <= chunkSize {
		return nil, fmt.Errorf("%w: playlist fits in a single chunk of %d", shared.ErrInvalidInput, chunkSize)
	}

	var specs []journal.TaskSpec
	part := 1
	for start := 0; start < len(export.VideoIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(export.VideoIDs) {
			end = len(export.VideoIDs)
		}
		chunk := append([]string(nil), export.VideoIDs[start:end]...)
		specs = append(specs, journal.TaskSpec{
			SourceRef:   ref,
			SourceTitle: export.Playlist.Title,
			TargetTitle: fmt.Sprintf("%s (part %d)", export.Playlist.Title, part),
			VideoIDs:    chunk,
		})
		part++
	}
	return specs, nil
}
