package tasks

import (
	"context"
	"errors"
	"testing"

	"ytbatch/internal/shared"
)

func TestEngine_PlanCopy(t *testing.T) {
	env := newTestEnv(t, singleIdentity(10000))
	ctx := context.Background()

	env.addPlaylist("PL-a", "Alpha", 3)
	env.addPlaylist("PL-b", "Beta", 2)

	specs, err := env.engine.PlanCopy(ctx, []string{"PL-a", "PL-b"})
	if err != nil {
		t.Fatalf("PlanCopy() error = %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("spec count = %d, want 2", len(specs))
	}
	if specs[0].SourceTitle != "Alpha" || specs[1].SourceTitle != "Beta" {
		t.Errorf("titles = %s/%s", specs[0].SourceTitle, specs[1].SourceTitle)
	}
	if len(specs[0].VideoIDs) != 0 {
		t.Error("copy tasks should resolve videos at execution time, not plan time")
	}

	if _, err := env.engine.PlanCopy(ctx, nil); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("PlanCopy(nil) error = %v, want ErrInvalidInput", err)
	}
	if _, err := env.engine.PlanCopy(ctx, []string{"PL-missing"}); err == nil {
		t.Error("PlanCopy() should fail on an unresolvable source")
	}
}

func TestEngine_PlanMerge(t *testing.T) {
	env := newTestEnv(t, singleIdentity(10000))
	ctx := context.Background()

	env.addPlaylist("PL-a", "Alpha", 3)
	b := env.addPlaylist("PL-b", "Beta", 2)
	// Overlap: the first video of b also closes a.
	env.extractor.playlists["PL-a"].VideoIDs[2] = b[0]

	specs, err := env.engine.PlanMerge(ctx, []string{"PL-a", "PL-b"}, "Everything")
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("spec count = %d, want 1", len(specs))
	}

	spec := specs[0]
	if spec.TargetTitle != "Everything" {
		t.Errorf("target title = %s", spec.TargetTitle)
	}
	// 3 + 2 videos with one shared between them.
	if len(spec.VideoIDs) != 4 {
		t.Errorf("merged videos = %v, want 4 distinct", spec.VideoIDs)
	}
	if spec.VideoIDs[2] != b[0] {
		t.Errorf("first occurrence should win, got %v", spec.VideoIDs)
	}

	if _, err := env.engine.PlanMerge(ctx, []string{"PL-a"}, ""); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("PlanMerge(single) error = %v, want ErrInvalidInput", err)
	}
}

func TestEngine_PlanMerge_DefaultTitle(t *testing.T) {
	env := newTestEnv(t, singleIdentity(10000))
	ctx := context.Background()

	env.addPlaylist("PL-a", "Alpha", 1)
	env.addPlaylist("PL-b", "Beta", 1)

	specs, err := env.engine.PlanMerge(ctx, []string{"PL-a", "PL-b"}, "")
	if err != nil {
		t.Fatalf("PlanMerge() error = %v", err)
	}
	if specs[0].TargetTitle != "Alpha + Beta" {
		t.Errorf("default title = %s, want Alpha + Beta", specs[0].TargetTitle)
	}
}

func TestEngine_PlanSplit(t *testing.T) {
	env := newTestEnv(t, singleIdentity(10000))
	ctx := context.Background()

	ids := env.addPlaylist("PL-big", "Archive", 7)

	specs, err := env.engine.PlanSplit(ctx, "PL-big", 3)
	if err != nil {
		t.Fatalf("PlanSplit() error = %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("spec count = %d, want 3 chunks of 3/3/1", len(specs))
	}
	if specs[0].TargetTitle != "Archive (part 1)" || specs[2].TargetTitle != "Archive (part 3)" {
		t.Errorf("chunk titles = %s / %s", specs[0].TargetTitle, specs[2].TargetTitle)
	}
	if len(specs[2].VideoIDs) != 1 || specs[2].VideoIDs[0] != ids[6] {
		t.Errorf("last chunk = %v, want the trailing video", specs[2].VideoIDs)
	}

	total := 0
	for _, spec := range specs {
		total += len(spec.VideoIDs)
	}
	if total != 7 {
		t.Errorf("chunks cover %d videos, want 7", total)
	}

	if _, err := env.engine.PlanSplit(ctx, "PL-big", 0); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("PlanSplit(0) error = %v, want ErrInvalidInput", err)
	}
	if _, err := env.engine.PlanSplit(ctx, "PL-big", 10); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("PlanSplit(oversized chunk) error = %v, want ErrInvalidInput", err)
	}
}
