package identity

import (
	"errors"
	"testing"

	"ytbatch/internal/shared"
)

// fakeQuota implements QuotaView with canned per-identity answers.
type fakeQuota struct {
	affordable map[string]bool
	ratios     map[string]float64
}

func (f *fakeQuota) CanSpend(identity string, cost int) bool {
	afford, ok := f.affordable[identity]
	return ok && afford
}

func (f *fakeQuota) RemainingRatio(identity string) float64 {
	return f.ratios[identity]
}

func testConfigs() []shared.IdentityConfig {
	return []shared.IdentityConfig{
		{Name: "primary", Group: "default", Environment: "prod", Priority: 10},
		{Name: "spare", Group: "default", Environment: "prod", Priority: 5},
		{Name: "staging", Group: "staging", Environment: "staging", Priority: 10},
	}
}

func allAffordable() *fakeQuota {
	return &fakeQuota{
		affordable: map[string]bool{"primary": true, "spare": true, "staging": true},
		ratios:     map[string]float64{"primary": 1.0, "spare": 1.0, "staging": 1.0},
	}
}

func TestNewPool_Validation(t *testing.T) {
	if _, err := NewPool(nil, allAffordable()); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("NewPool(nil) error = %v, want ErrInvalidConfig", err)
	}

	dup := []shared.IdentityConfig{
		{Name: "primary", Group: "default"},
		{Name: "primary", Group: "default"},
	}
	if _, err := NewPool(dup, allAffordable()); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("NewPool(duplicate) error = %v, want ErrInvalidConfig", err)
	}
}

func TestPool_SelectForWrite(t *testing.T) {
	tc := []struct {
		name        string
		quota       *fakeQuota
		group       string
		environment string
		force       string
		want        string
		wantErr     error
	}{
		{
			name:  "highest priority wins",
			quota: allAffordable(),
			want:  "primary",
		},
		{
			name: "exhausted identity excluded",
			quota: &fakeQuota{
				affordable: map[string]bool{"primary": false, "spare": true, "staging": true},
				ratios:     map[string]float64{"spare": 0.4, "staging": 1.0},
			},
			group: "default",
			want:  "spare",
		},
		{
			name: "remaining ratio breaks priority ties",
			quota: &fakeQuota{
				affordable: map[string]bool{"primary": true, "staging": true},
				ratios:     map[string]float64{"primary": 0.2, "staging": 0.9},
			},
			want: "staging",
		},
		{
			name:        "environment filter",
			quota:       allAffordable(),
			environment: "staging",
			want:        "staging",
		},
		{
			name:  "force bypasses quota filtering",
			quota: &fakeQuota{affordable: map[string]bool{}},
			force: "spare",
			want:  "spare",
		},
		{
			name:    "force unknown name",
			quota:   allAffordable(),
			force:   "ghost",
			wantErr: shared.ErrIdentityNotFound,
		},
		{
			name:    "nothing affordable",
			quota:   &fakeQuota{affordable: map[string]bool{}},
			group:   "default",
			wantErr: shared.ErrNoAvailableIdentity,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(testConfigs(), tt.quota)
			if err != nil {
				t.Fatalf("NewPool() error = %v", err)
			}

			got, err := pool.SelectForWrite(tt.group, tt.environment, tt.force, 50)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SelectForWrite() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectForWrite() error = %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("SelectForWrite() = %s, want %s", got.Name, tt.want)
			}
		})
	}
}

func TestPool_OnExhausted(t *testing.T) {
	quota := &fakeQuota{
		affordable: map[string]bool{"spare": true, "staging": true},
		ratios:     map[string]float64{"spare": 0.5, "staging": 1.0},
	}
	pool, err := NewPool(testConfigs(), quota)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	primary, err := pool.ByName("primary")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}

	// Failover stays inside the exhausted identity's group. The staging
	// identity has budget but belongs elsewhere.
	switched, next := pool.OnExhausted(primary, 50)
	if !switched || next == nil {
		t.Fatal("OnExhausted() should switch to the in-group spare")
	}
	if next.Name != "spare" {
		t.Errorf("OnExhausted() = %s, want spare", next.Name)
	}

	// Whole group spent: no cross-group rescue.
	quota.affordable["spare"] = false
	switched, next = pool.OnExhausted(primary, 50)
	if switched || next != nil {
		t.Errorf("OnExhausted() = (%v, %v), want (false, nil)", switched, next)
	}
}

func TestPool_List(t *testing.T) {
	pool, err := NewPool(testConfigs(), allAffordable())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	list := pool.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d identities, want 3", len(list))
	}
	if list[0].Name != "primary" || list[2].Name != "staging" {
		t.Errorf("List() order = %v, want configuration order", list)
	}
}
