// Package reservation tracks soft cart reservations: a best-effort,
// TTL-bounded record of which active sessions hold which menu item. Soft
// reservations never gate real inventory; they feed advisory availability
// and the demand-pressure score.
package reservation

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const shardCount = 32

// Entry is one session's live claim on one item. Re-adding the same item
// replaces the entry and refreshes its expiry.
type Entry struct {
	SessionID string
	ItemID    string
	Quantity  int32
	CreatedAt time.Time
	ExpiresAt time.Time
}

type shard struct {
	mu sync.RWMutex
	// itemID -> sessionID -> entry
	items map[string]map[string]Entry
}

type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Tracker shards reservations by item id so track/release/read paths on
// different items never contend, and the sweep holds at most one shard
// lock at a time.
type Tracker struct {
	shards [shardCount]*shard

	// sessMu guards the session index used by ReleaseAll. It is never
	// held together with a shard lock; the index may briefly lag the
	// shards, which only makes a Release a no-op.
	sessMu   sync.Mutex
	sessions map[string]map[string]struct{}

	ttl           time.Duration
	sweepInterval time.Duration
	clk           clock.Clock
	log           *slog.Logger

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewTracker(cfg Config, clk clock.Clock, log *slog.Logger) *Tracker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}

	t := &Tracker{
		sessions:      make(map[string]map[string]struct{}),
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		clk:           clk,
		log:           log,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for i := range t.shards {
		t.shards[i] = &shard{items: make(map[string]map[string]Entry)}
	}
	return t
}

func (t *Tracker) shardFor(itemID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(itemID))
	return t.shards[h.Sum32()%shardCount]
}

// Track upserts the (session, item) reservation with a fresh expiry.
// It always succeeds.
func (t *Tracker) Track(sessionID, itemID string, quantity int32) {
	now := t.clk.Now()
	e := Entry{
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  quantity,
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	}

	s := t.shardFor(itemID)
	s.mu.Lock()
	bySession, ok := s.items[itemID]
	if !ok {
		bySession = make(map[string]Entry)
		s.items[itemID] = bySession
	}
	bySession[sessionID] = e
	s.mu.Unlock()

	t.sessMu.Lock()
	itemSet, ok := t.sessions[sessionID]
	if !ok {
		itemSet = make(map[string]struct{})
		t.sessions[sessionID] = itemSet
	}
	itemSet[itemID] = struct{}{}
	t.sessMu.Unlock()
}

// Release drops a single reservation; absent entries are a no-op.
func (t *Tracker) Release(sessionID, itemID string) {
	s := t.shardFor(itemID)
	s.mu.Lock()
	t.removeLocked(s, itemID, sessionID)
	s.mu.Unlock()

	t.sessMu.Lock()
	if itemSet, ok := t.sessions[sessionID]; ok {
		delete(itemSet, itemID)
		if len(itemSet) == 0 {
			delete(t.sessions, sessionID)
		}
	}
	t.sessMu.Unlock()
}

// ReleaseAll drops every reservation a session holds, typically after the
// cart is cleared or its order committed.
func (t *Tracker) ReleaseAll(sessionID string) {
	t.sessMu.Lock()
	itemSet := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	t.sessMu.Unlock()

	for itemID := range itemSet {
		s := t.shardFor(itemID)
		s.mu.Lock()
		t.removeLocked(s, itemID, sessionID)
		s.mu.Unlock()
	}
}

// removeLocked requires the shard lock.
func (t *Tracker) removeLocked(s *shard, itemID, sessionID string) {
	bySession, ok := s.items[itemID]
	if !ok {
		return
	}
	delete(bySession, sessionID)
	if len(bySession) == 0 {
		delete(s.items, itemID)
	}
}

// ActiveCartCount reports how many distinct sessions hold a live
// reservation for the item. Expired entries are skipped, not reaped; the
// sweep reclaims them.
func (t *Tracker) ActiveCartCount(itemID string) int {
	now := t.clk.Now()
	s := t.shardFor(itemID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.items[itemID] {
		if e.ExpiresAt.After(now) {
			count++
		}
	}
	return count
}

// TotalReservedQuantity sums live reservation quantities for the item.
func (t *Tracker) TotalReservedQuantity(itemID string) int64 {
	now := t.clk.Now()
	s := t.shardFor(itemID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, e := range s.items[itemID] {
		if e.ExpiresAt.After(now) {
			total += int64(e.Quantity)
		}
	}
	return total
}

// AdvisoryAvailableStock is hard stock minus live soft reservations,
// floored at zero. It returns nil when stock tracking is disabled
// (hardStock nil) and is informational only: commits rely solely on the
// store's conditional decrement.
func (t *Tracker) AdvisoryAvailableStock(itemID string, hardStock *int64) *int64 {
	if hardStock == nil {
		return nil
	}
	available := *hardStock - t.TotalReservedQuantity(itemID)
	if available < 0 {
		available = 0
	}
	return &available
}

// Len counts all stored entries, expired ones included. Diagnostic only.
func (t *Tracker) Len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		for _, bySession := range s.items {
			n += len(bySession)
		}
		s.mu.RUnlock()
	}
	return n
}

// Start launches the periodic sweep. The ticker is created here, before
// the goroutine spawns, so a caller advancing a mock clock right after
// Start cannot miss ticks.
func (t *Tracker) Start() {
	t.started = true
	ticker := t.clk.Ticker(t.sweepInterval)
	go t.run(ticker)
}

func (t *Tracker) Stop() {
	if !t.started {
		return
	}
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	<-t.done
}

func (t *Tracker) run(ticker *clock.Ticker) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

// sweep reclaims expired entries shard by shard so readers of other shards
// are never stalled. Reclamation is memory hygiene, not correctness: reads
// already skip expired entries.
func (t *Tracker) sweep() {
	now := t.clk.Now()
	reclaimed := 0

	for _, s := range t.shards {
		var stale []Entry

		s.mu.Lock()
		for itemID, bySession := range s.items {
			for sessionID, e := range bySession {
				if !e.ExpiresAt.After(now) {
					delete(bySession, sessionID)
					stale = append(stale, e)
				}
			}
			if len(bySession) == 0 {
				delete(s.items, itemID)
			}
		}
		s.mu.Unlock()

		t.sessMu.Lock()
		for _, e := range stale {
			if itemSet, ok := t.sessions[e.SessionID]; ok {
				delete(itemSet, e.ItemID)
				if len(itemSet) == 0 {
					delete(t.sessions, e.SessionID)
				}
			}
		}
		t.sessMu.Unlock()

		reclaimed += len(stale)
	}

	if reclaimed > 0 && t.log != nil {
		t.log.Debug("reservation sweep", slog.Int("reclaimed", reclaimed))
	}
}
