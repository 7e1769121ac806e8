package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller periodically refreshes every enabled family through the same
// Sync entry point that serves manual refreshes, so week rollovers
// happen even while no family member has the portal open.
type Poller struct {
	sync     *Sync
	battles  BattleStore
	interval time.Duration
}

// NewPoller creates a new Poller instance.
func NewPoller(sync *Sync, battles BattleStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{sync: sync, battles: battles, interval: interval}
}

// Run sweeps all enabled families on the configured interval until the
// context is cancelled. A failing family is logged and skipped; the
// sweep continues.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Dur("interval", p.interval).Msg("Battle poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Battle poller stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	ids, err := p.battles.FamilyIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Poller failed to list battle families")
		return
	}

	for _, familyID := range ids {
		if ctx.Err() != nil {
			return
		}
		// Refresh skips families whose refresh is already in flight.
		if _, err := p.sync.Refresh(ctx, familyID); err != nil {
			log.Error().Err(err).Str("family_id", familyID).Msg("Poller refresh failed")
		}
	}
}
