package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"ytbatch/internal/formatter"
	"ytbatch/internal/quota"
)

// QuotaStatus prints the ledger's per-identity accounting and the time
// remaining until the next daily reset.
func (r *Runner) QuotaStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	states := r.ledger.States()
	untilReset := r.ledger.TimeUntilReset("")

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			States         []quota.State `json:"states"`
			SecondsToReset int           `json:"seconds_to_reset"`
		}{States: states, SecondsToReset: int(untilReset.Seconds())}, cmd.Bool("pretty"))
	}

	return r.writePlain("%s", formatter.QuotaReport(states, untilReset))
}

// IdentityList prints the configured identities with their routing
// attributes and remaining budget ratio.
func (r *Runner) IdentityList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	identities := r.pool.List()

	if cmd.Bool("json") {
		return r.writeJSON(identities, cmd.Bool("pretty"))
	}

	r.writePlain("%-20s %-12s %-12s %8s %10s\n", "IDENTITY", "GROUP", "ENV", "PRIORITY", "REMAINING")
	for _, id := range identities {
		r.writePlain("%-20s %-12s %-12s %8d %9.0f%%\n",
			id.Name, id.Group, id.Environment, id.Priority,
			r.ledger.RemainingRatio(id.Name)*100)
	}
	return nil
}
