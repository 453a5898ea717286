package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/bin"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/location"
	"github.com/ecobin/ecobin-api/internal/domain/realtime"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/geo"
)

var errInjected = errors.New("injected failure")

// memState is everything a transaction can touch.
type memState struct {
	subs    map[uuid.UUID]Submission
	wallets map[uuid.UUID]wallet.Wallet
	ledger  []wallet.Mutation
	events  []audit.Event
	flags   []fraud.Flag
}

func (s memState) clone() memState {
	c := memState{
		subs:    make(map[uuid.UUID]Submission, len(s.subs)),
		wallets: make(map[uuid.UUID]wallet.Wallet, len(s.wallets)),
		ledger:  append([]wallet.Mutation(nil), s.ledger...),
		events:  append([]audit.Event(nil), s.events...),
		flags:   append([]fraud.Flag(nil), s.flags...),
	}
	for k, v := range s.subs {
		c.subs[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	return c
}

// memStore serializes transactions and commits a copy only when fn succeeds.
type memStore struct {
	mu          sync.Mutex
	state       memState
	failOnEvent audit.EventType
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		subs:    map[uuid.UUID]Submission{},
		wallets: map[uuid.UUID]wallet.Wallet{},
	}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: &work, failOnEvent: m.failOnEvent}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error) {
	return m.list(func(s Submission) bool { return s.UserID == userID }, limit, offset)
}

func (m *memStore) ListByStatus(_ context.Context, statuses []Status, limit, offset int) ([]*Submission, int, error) {
	return m.list(func(s Submission) bool {
		for _, st := range statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}, limit, offset)
}

func (m *memStore) list(match func(Submission) bool, limit, offset int) ([]*Submission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*Submission, 0)
	for _, s := range m.state.subs {
		if match(s) {
			s := s
			all = append(all, &s)
		}
	}
	total := len(all)
	if offset >= total {
		return []*Submission{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) ListEvents(_ context.Context, id uuid.UUID) ([]*audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*audit.Event, 0)
	for _, e := range m.state.events {
		if e.SubmissionID == id {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *memStore) points(userID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.wallets[userID].PointsBalance
}

func (m *memStore) ledgerLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.ledger)
}

func (m *memStore) flagCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.flags)
}

func (m *memStore) put(s *Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.subs[s.ID] = *s
}

type memTx struct {
	state       *memState
	failOnEvent audit.EventType
}

func (t *memTx) Insert(_ context.Context, s *Submission) error {
	t.state.subs[s.ID] = *s
	return nil
}

func (t *memTx) LockByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	s, ok := t.state.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) UpdateStatus(_ context.Context, s *Submission, from Status) error {
	cur, ok := t.state.subs[s.ID]
	if !ok || cur.Status != from {
		return ErrInvalidTransition
	}
	t.state.subs[s.ID] = *s
	return nil
}

func (t *memTx) ApplyWallet(_ context.Context, m wallet.Mutation) (*wallet.Wallet, error) {
	for _, prev := range t.state.ledger {
		if prev.UserID == m.UserID && prev.Type == m.Type && prev.ReferenceID == m.ReferenceID {
			return nil, wallet.ErrDuplicateReference
		}
	}
	w := t.state.wallets[m.UserID]
	w.UserID = m.UserID
	if err := w.Apply(m); err != nil {
		return nil, err
	}
	t.state.wallets[m.UserID] = w
	t.state.ledger = append(t.state.ledger, m)
	return &w, nil
}

func (t *memTx) AppendEvent(_ context.Context, e *audit.Event) error {
	if t.failOnEvent != "" && e.EventType == t.failOnEvent {
		return errInjected
	}
	t.state.events = append(t.state.events, *e)
	return nil
}

func (t *memTx) CreateFlag(_ context.Context, f *fraud.Flag) error {
	t.state.flags = append(t.state.flags, *f)
	return nil
}

// fixedLocation returns the same verdict for every point.
type fixedLocation struct {
	result *location.Result
	err    error
}

func (f fixedLocation) Validate(_ context.Context, p geo.Point) (*location.Result, error) {
	if err := p.Validate(); err != nil {
		return &location.Result{Message: location.MessageInvalidCoordinates}, nil
	}
	return f.result, f.err
}

func verdict(score float64) fixedLocation {
	b := &bin.Bin{ID: uuid.New(), Name: "Pier", Latitude: 10, Longitude: 76, RadiusMeters: 50, IsActive: true}
	return fixedLocation{result: &location.Result{
		IsValid:      score >= 0.8,
		Score:        score,
		Bin:          b,
		WithinRadius: score >= 0.8,
		Message:      location.MessageOutsideRadius,
	}}
}

type stubObjects struct {
	exists bool
	err    error
}

func (s stubObjects) Exists(context.Context, string) (bool, error) { return s.exists, s.err }

func (s stubObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://videos.test/" + key + "?sig=x", nil
}

// recordingPublisher keeps everything published.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []realtime.SubmissionEvent
	wallets []realtime.WalletDelta
}

func (p *recordingPublisher) PublishSubmissionEvent(_ context.Context, ev realtime.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) PublishWalletDelta(_ context.Context, d realtime.WalletDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallets = append(p.wallets, d)
	return nil
}
