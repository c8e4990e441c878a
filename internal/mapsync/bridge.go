package mapsync

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tripmate/internal/logging"
)

// Fetcher returns the raw server-rendered map for a plan.
type Fetcher interface {
	GetMapDocument(ctx context.Context, planID int64) ([]byte, error)
}

// Bridge fetches and holds the current map document.
//
// Concurrent fetches for the same plan share a single request. Every request is
// numbered; a response is only kept if no later request for the same plan has
// already been applied.
type Bridge struct {
	fetcher Fetcher
	log     *logging.Logger
	now     func() time.Time

	group singleflight.Group
	seq   atomic.Uint64

	mu      sync.Mutex
	planID  int64
	current Document
}

// NewBridge returns a bridge backed by fetcher. log may be nil.
func NewBridge(fetcher Fetcher, log *logging.Logger) *Bridge {
	return &Bridge{fetcher: fetcher, log: log, now: time.Now}
}

// Fetch returns the map document for planID and makes it current.
// It never fails: fetch or adaptation errors yield the fallback document.
func (b *Bridge) Fetch(ctx context.Context, planID int64) Document {
	b.mu.Lock()
	b.planID = planID
	b.mu.Unlock()

	v, _, _ := b.group.Do(key(planID), func() (any, error) {
		return b.load(ctx, planID), nil
	})
	return v.(Document)
}

// Refresh starts a new fetch for the current plan, even if one is already in
// flight, so the result reflects every mutation made before the call.
func (b *Bridge) Refresh(ctx context.Context) Document {
	b.mu.Lock()
	planID := b.planID
	b.mu.Unlock()
	if planID == 0 {
		return Document{}
	}
	return b.RefreshPlan(ctx, planID)
}

// RefreshPlan makes planID current and refetches it.
func (b *Bridge) RefreshPlan(ctx context.Context, planID int64) Document {
	b.group.Forget(key(planID))
	return b.Fetch(ctx, planID)
}

// Current returns the newest applied document for the plan last requested.
// It is empty until the first response for that plan arrives.
func (b *Bridge) Current() Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current.PlanID != b.planID {
		return Document{PlanID: b.planID}
	}
	return b.current
}

// PlanID returns the plan last requested.
func (b *Bridge) PlanID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.planID
}

func (b *Bridge) load(ctx context.Context, planID int64) Document {
	seq := b.seq.Add(1)

	var doc Document
	raw, err := b.fetcher.GetMapDocument(ctx, planID)
	if err == nil {
		doc, err = Adapt(planID, raw)
	}
	if err != nil {
		b.log.Printf("map plan=%d seq=%d: using fallback: %v", planID, seq, err)
		doc = Fallback(planID)
		doc.Reason = err.Error()
	}
	doc.Seq = seq
	doc.FetchedAt = b.now()

	if !b.apply(doc) {
		b.log.Printf("map plan=%d seq=%d: discarded stale response", planID, seq)
	}
	return doc
}

// apply makes doc current unless it is for another plan or older than what is shown.
func (b *Bridge) apply(doc Document) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if doc.PlanID != b.planID {
		return false
	}
	if b.current.PlanID == doc.PlanID && b.current.Seq > doc.Seq {
		return false
	}
	b.current = doc
	return true
}

func key(planID int64) string {
	return strconv.FormatInt(planID, 10)
}
