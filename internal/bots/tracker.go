package bots

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mevlens/mevlens/internal/domain"
)

// seenLimit bounds the in-process duplicate guard.
const seenLimit = 16384

// Tracker folds detected opportunities into cumulative bot profiles.
// Updates for the same (address, chain) are serialized through a keyed
// mutex, and the store applies them as atomic upserts, so concurrent
// batches never lose increments. A bounded recent-ID set drops replays of
// the same opportunity inside one process; cross-process replays are
// stopped upstream by the opportunity store's dedup insert.
type Tracker struct {
	identifier *Identifier
	store      domain.BotStore
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// NewTracker returns a Tracker.
func NewTracker(identifier *Identifier, store domain.BotStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		identifier: identifier,
		store:      store,
		logger:     logger.With(slog.String("component", "bot_tracker")),
		locks:      make(map[string]*sync.Mutex),
		seen:       make(map[string]struct{}),
	}
}

func (t *Tracker) lockFor(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// markSeen records an opportunity ID, reporting whether it was new.
func (t *Tracker) markSeen(id string) bool {
	t.seenMu.Lock()
	defer t.seenMu.Unlock()
	if _, dup := t.seen[id]; dup {
		return false
	}
	t.seen[id] = struct{}{}
	t.seenOrder = append(t.seenOrder, id)
	if len(t.seenOrder) > seenLimit {
		oldest := t.seenOrder[0]
		t.seenOrder = t.seenOrder[1:]
		delete(t.seen, oldest)
	}
	return true
}

// unmarkSeen forgets an ID so a failed update can be retried.
func (t *Tracker) unmarkSeen(id string) {
	t.seenMu.Lock()
	defer t.seenMu.Unlock()
	if _, ok := t.seen[id]; !ok {
		return
	}
	delete(t.seen, id)
	for i := len(t.seenOrder) - 1; i >= 0; i-- {
		if t.seenOrder[i] == id {
			t.seenOrder = append(t.seenOrder[:i], t.seenOrder[i+1:]...)
			break
		}
	}
}

// Track folds one opportunity into its bot's profile. Opportunities without
// a bot address (latent arbitrage spreads) are skipped. Tracking the same
// opportunity ID twice is a no-op.
func (t *Tracker) Track(ctx context.Context, opp domain.Opportunity) error {
	if opp.BotAddress == "" {
		return nil
	}
	if opp.ID == "" {
		return fmt.Errorf("bots: track: opportunity has no id: %w", domain.ErrInvalidInput)
	}
	if !t.markSeen(opp.ID) {
		t.logger.Debug("duplicate opportunity ignored", slog.String("opportunity_id", opp.ID))
		return nil
	}

	address := domain.NormalizeAddress(opp.BotAddress)
	key := address + "|" + opp.ChainID
	lock := t.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	identity := t.identifier.Identify(address, nil)

	primaryToken, _ := opp.PrimaryToken()
	delta := domain.BotDelta{
		Address:      address,
		ChainID:      opp.ChainID,
		Name:         identity.Name,
		Verified:     identity.Verified,
		ObservedAt:   opp.Timestamp,
		Success:      opp.NetProfitUSD > 0,
		ProfitUSD:    opp.NetProfitUSD,
		GasUSD:       opp.GasCostUSD,
		Type:         opp.OpportunityType,
		ProtocolName: opp.ProtocolName,
		PrimaryToken: primaryToken,
		Confidence:   identity.Confidence,
	}

	if err := t.store.ApplyDelta(ctx, delta); err != nil {
		// Forget the ID so the caller's retry is not swallowed as a
		// duplicate while the increment was never applied.
		t.unmarkSeen(opp.ID)
		return fmt.Errorf("bots: apply delta for %s on %s: %w", address, opp.ChainID, err)
	}
	return nil
}

// Profile returns a bot's tracked profile with its identity refreshed
// against the current registry and observed strategy mix.
func (t *Tracker) Profile(ctx context.Context, address, chainID string) (domain.Bot, domain.BotIdentity, error) {
	normalized := domain.NormalizeAddress(address)
	bot, err := t.store.GetProfile(ctx, normalized, chainID)
	if err != nil {
		return domain.Bot{}, domain.BotIdentity{}, fmt.Errorf("bots: profile %s on %s: %w", normalized, chainID, err)
	}

	history := make(map[domain.OpportunityType]int, len(bot.PreferredTypes))
	for _, pt := range bot.PreferredTypes {
		// Preferred types are ordered by count but carry no counts; treat
		// presence as meeting the heuristic floor.
		history[domain.OpportunityType(pt)] = multiStrategyMinCount
	}
	identity := t.identifier.Identify(normalized, history)
	return bot, identity, nil
}
