package journal

import (
	"context"
	"fmt"
)

// StoreCounts tallies backfill outcomes for one secondary store.
type StoreCounts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BackfillReport summarizes a Backfill run.
type BackfillReport struct {
	Users   int                     `json:"users"`
	Entries int                     `json:"entries"`
	Stores  map[string]*StoreCounts `json:"stores"`
}

// Backfill replays committed entries into the secondary stores, for one user or for
// every user when userID is empty. It always waits for each entry's propagation.
// Counters are incremented again, so it is meant for freshly provisioned stores.
func (c *Coordinator) Backfill(ctx context.Context, userID string) (BackfillReport, error) {
	rep := BackfillReport{Stores: map[string]*StoreCounts{}}
	users := []string{userID}
	if userID == "" {
		ids, err := c.stores.Primary.Entries().ListUserIDs(ctx)
		if err != nil {
			return rep, fmt.Errorf("list users: %w", err)
		}
		users = ids
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		entries, err := c.stores.Primary.Entries().ListByUser(ctx, u, 0)
		if err != nil {
			return rep, fmt.Errorf("list entries of %s: %w", u, err)
		}
		rep.Users++
		for _, e := range entries {
			rep.Entries++
			for _, r := range c.run(context.WithoutCancel(ctx), e.EntryID, c.entryTasks(e)) {
				sc, ok := rep.Stores[r.Store]
				if !ok {
					sc = &StoreCounts{}
					rep.Stores[r.Store] = sc
				}
				if r.Err != nil {
					sc.Failed++
				} else {
					sc.Succeeded++
				}
			}
		}
	}
	c.log.Info().Int("users", rep.Users).Int("entries", rep.Entries).Msg("backfill finished")
	return rep, nil
}
