// package identity manages the pool of remote API credentials and selects a
// writer identity for each task.
//
// Identities are grouped for failover: when one exhausts its daily budget
// the pool looks for a substitute in the same group only. Spreading one
// workload across unrelated groups is a policy boundary, not an
// optimization opportunity.
package identity

import (
	"fmt"
	"sort"

	"ytbatch/internal/shared"
)

// Identity is one named set of remote API credentials plus routing metadata.
// The credential handle itself is owned by the services layer; the pool only
// deals in names.
type Identity struct {
	Name        string
	Group       string
	Environment string
	Priority    int
}

// QuotaView is the slice of the quota ledger the pool consults when
// filtering candidates.
type QuotaView interface {
	CanSpend(identity string, cost int) bool
	RemainingRatio(identity string) float64
}

// Pool holds the configured identities.
type Pool struct {
	identities []Identity
	quota      QuotaView
}

// NewPool creates a pool from validated identity configuration.
func NewPool(cfgs []shared.IdentityConfig, quota QuotaView) (*Pool, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no identities configured", shared.ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(cfgs))
	identities := make([]Identity, 0, len(cfgs))
	for _, cfg := range cfgs {
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate identity name %q", shared.ErrInvalidConfig, cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		identities = append(identities, Identity{
			Name:        cfg.Name,
			Group:       cfg.Group,
			Environment: cfg.Environment,
			Priority:    cfg.Priority,
		})
	}

	return &Pool{identities: identities, quota: quota}, nil
}

// List returns all configured identities in configuration order.
func (p *Pool) List() []Identity {
	cp := make([]Identity, len(p.identities))
	copy(cp, p.identities)
	return cp
}

// ByName returns the identity with the given name.
func (p *Pool) ByName(name string) (*Identity, error) {
	for i := range p.identities {
		if p.identities[i].Name == name {
			id := p.identities[i]
			return &id, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrIdentityNotFound, name)
}

// SelectForWrite picks the identity that should perform a write costing
// cost units.
//
// A non-empty force name short-circuits all filtering. Otherwise candidates
// are filtered by group and environment when given, identities that cannot
// afford the write are excluded, and the survivors are ordered by
// descending priority, then by descending remaining-quota ratio.
func (p *Pool) SelectForWrite(group, environment, force string, cost int) (*Identity, error) {
	if force != "" {
		return p.ByName(force)
	}

	candidates := p.filter(func(id Identity) bool {
		if group != "" && id.Group != group {
			return false
		}
		if environment != "" && id.Environment != environment {
			return false
		}
		return p.quota.CanSpend(id.Name, cost)
	})

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: group=%q environment=%q", shared.ErrNoAvailableIdentity, group, environment)
	}

	best := candidates[0]
	return &best, nil
}

// OnExhausted looks for a substitute for an exhausted identity within the
// same group only. Returns switched=false when the whole group is spent.
func (p *Pool) OnExhausted(exhausted *Identity, cost int) (bool, *Identity) {
	candidates := p.filter(func(id Identity) bool {
		if id.Group != exhausted.Group || id.Name == exhausted.Name {
			return false
		}
		return p.quota.CanSpend(id.Name, cost)
	})

	if len(candidates) == 0 {
		return false, nil
	}

	next := candidates[0]
	return true, &next
}

// filter returns matching identities sorted best-first.
func (p *Pool) filter(keep func(Identity) bool) []Identity {
	var candidates []Identity
	for _, id := range p.identities {
		if keep(id) {
			candidates = append(candidates, id)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return p.quota.RemainingRatio(candidates[i].Name) > p.quota.RemainingRatio(candidates[j].Name)
	})

	return candidates
}
