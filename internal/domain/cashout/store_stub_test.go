package cashout

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/pkg/payout"
)

type memState struct {
	requests map[uuid.UUID]Request
	wallets  map[uuid.UUID]wallet.Wallet
	ledger   []wallet.Mutation
	events   []audit.CashoutEvent
}

func (s memState) clone() memState {
	c := memState{
		requests: make(map[uuid.UUID]Request, len(s.requests)),
		wallets:  make(map[uuid.UUID]wallet.Wallet, len(s.wallets)),
		ledger:   append([]wallet.Mutation(nil), s.ledger...),
		events:   append([]audit.CashoutEvent(nil), s.events...),
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	return c
}

type memStore struct {
	mu          sync.Mutex
	state       memState
	// failOnEvent makes AppendEvent of that type fail, rolling the unit back.
	failOnEvent audit.EventType
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		requests: map[uuid.UUID]Request{},
		wallets:  map[uuid.UUID]wallet.Wallet{},
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

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return m.list(func(r Request) bool { return r.UserID == userID }, limit, offset)
}

func (m *memStore) List(_ context.Context, status *Status, limit, offset int) ([]*Request, int, error) {
	return m.list(func(r Request) bool { return status == nil || r.Status == *status }, limit, offset)
}

func (m *memStore) list(match func(Request) bool, limit, offset int) ([]*Request, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*Request, 0)
	for _, r := range m.state.requests {
		if match(r) {
			r := r
			all = append(all, &r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []*Request{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) ListEvents(_ context.Context, id uuid.UUID) ([]*audit.CashoutEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*audit.CashoutEvent, 0)
	for _, e := range m.state.events {
		if e.CashoutID == id {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *memStore) eventTypes(id uuid.UUID) []audit.EventType {
	events, _ := m.ListEvents(context.Background(), id)
	out := make([]audit.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func (m *memStore) wallet(userID uuid.UUID) wallet.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.wallets[userID]
}

func (m *memStore) fund(userID uuid.UUID, points int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.state.wallets[userID]
	w.UserID = userID
	w.PointsBalance += points
	m.state.wallets[userID] = w
}

func (m *memStore) ledgerLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.ledger)
}

func (m *memStore) setStatus(id uuid.UUID, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.state.requests[id]
	r.Status = st
	m.state.requests[id] = r
}

type memTx struct {
	state       *memState
	failOnEvent audit.EventType
}

func (t *memTx) Insert(_ context.Context, r *Request) error {
	t.state.requests[r.ID] = *r
	return nil
}

func (t *memTx) LockByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := t.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) Update(_ context.Context, r *Request, from Status) error {
	cur, ok := t.state.requests[r.ID]
	if !ok || cur.Status != from {
		return ErrInvalidTransition
	}
	t.state.requests[r.ID] = *r
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

func (t *memTx) AppendEvent(_ context.Context, e *audit.CashoutEvent) error {
	if t.failOnEvent != "" && e.EventType == t.failOnEvent {
		return errEventWrite
	}
	t.state.events = append(t.state.events, *e)
	return nil
}

// ctxStore refuses to open a unit of work once ctx is done, as BeginTx does.
type ctxStore struct {
	*memStore
}

func (c ctxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memStore.WithinTx(ctx, fn)
}

var errEventWrite = errors.New("event write failed")

var errProvider = errors.New("provider unavailable")

// stubGateway records calls and answers with err or a fixed id.
type stubGateway struct {
	mu      sync.Mutex
	calls   []payout.Request
	err     error
	before  func()
	// ctxErrs holds ctx.Err() as seen by each call.
	ctxErrs []error
}

func (g *stubGateway) InitiatePayout(ctx context.Context, req payout.Request) (string, error) {
	if g.before != nil {
		g.before()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	if g.err != nil {
		return "", g.err
	}
	return "txn-" + req.CashoutID.String()[:8], nil
}
