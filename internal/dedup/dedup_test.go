package dedup

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tc := []struct {
		name        string
		source      []string
		target      []string
		wantVerdict Verdict
		wantRatio   float64
		wantMissing []string
	}{
		{
			name:        "empty target creates",
			source:      []string{"a", "b", "c"},
			target:      nil,
			wantVerdict: VerdictCreate,
			wantRatio:   0,
			wantMissing: []string{"a", "b", "c"},
		},
		{
			name:        "identical membership skips",
			source:      []string{"a", "b", "c", "d"},
			target:      []string{"a", "b", "c", "d"},
			wantVerdict: VerdictSkip,
			wantRatio:   1.0,
		},
		{
			name:        "order does not matter for exact match",
			source:      []string{"a", "b", "c", "d"},
			target:      []string{"d", "c", "b", "a"},
			wantVerdict: VerdictSkip,
			wantRatio:   1.0,
		},
		{
			name:        "full overlap but extra target videos updates",
			source:      []string{"a", "b", "c"},
			target:      []string{"a", "b", "c", "x"},
			wantVerdict: VerdictUpdate,
			wantRatio:   1.0,
		},
		{
			name:        "high overlap updates with missing in source order",
			source:      []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9", "v10"},
			target:      []string{"v1", "v2", "v3", "v4", "v5", "v6", "v8", "v10"},
			wantVerdict: VerdictUpdate,
			wantRatio:   0.8,
			wantMissing: []string{"v7", "v9"},
		},
		{
			name:        "threshold is strict",
			source:      []string{"a", "b", "c", "d"},
			target:      []string{"a", "b", "c"},
			wantVerdict: VerdictCreate,
			wantRatio:   0.75,
			wantMissing: []string{"d"},
		},
		{
			name:        "low overlap creates",
			source:      []string{"a", "b", "c", "d"},
			target:      []string{"a", "x", "y", "z"},
			wantVerdict: VerdictCreate,
			wantRatio:   0.25,
			wantMissing: []string{"b", "c", "d"},
		},
		{
			name:        "duplicate source ids collapse for ratio but stay in missing",
			source:      []string{"a", "b", "b", "c"},
			target:      []string{"a", "b", "x"},
			wantVerdict: VerdictCreate,
			wantRatio:   2.0 / 3.0,
			wantMissing: []string{"c"},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.source, tt.target)
			if got.Verdict != tt.wantVerdict {
				t.Errorf("Classify() verdict = %s, want %s", got.Verdict, tt.wantVerdict)
			}
			if got.MatchRatio != tt.wantRatio {
				t.Errorf("Classify() ratio = %v, want %v", got.MatchRatio, tt.wantRatio)
			}
			if !reflect.DeepEqual(got.Missing, tt.wantMissing) {
				t.Errorf("Classify() missing = %v, want %v", got.Missing, tt.wantMissing)
			}
		})
	}
}

func TestClassify_EmptySourcePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Classify() should panic on empty source")
		}
	}()
	Classify(nil, []string{"a"})
}

func TestParseVerdict(t *testing.T) {
	for _, v := range []Verdict{VerdictSkip, VerdictUpdate, VerdictCreate} {
		got, err := ParseVerdict(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVerdict(%s) = (%s, %v)", v, got, err)
		}
	}
	if _, err := ParseVerdict("merge"); err == nil {
		t.Error("ParseVerdict() should reject unknown verdicts")
	}
}
