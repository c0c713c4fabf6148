// Package memstore is test support: it keeps orders, leads, products and
// ledger entries in memory behind one transaction lock so service tests can
// drive several modules together without a database. Only _test.go files
// import it. The lock serializes whole transactions, so row-lock ordering and
// concurrent stock updates are covered by the Postgres integration tests in
// internal/adapters.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	catrepo "orderdesk_backend/internal/catalog/repository"
	invrepo "orderdesk_backend/internal/inventory/repository"
	leadrepo "orderdesk_backend/internal/leads/repository"
	orderrepo "orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/platform/db"
)

type txKey struct{}

// Store owns the data of every in-memory repository.
type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	products   map[uuid.UUID]catrepo.Product
	entries    []invrepo.Entry
	orders     map[uuid.UUID]orderrepo.Order
	orderSeq   []uuid.UUID
	orderItems map[uuid.UUID][]orderrepo.LineItem
	history    []orderrepo.HistoryEntry
	notes      []orderrepo.Note
	leads      map[uuid.UUID]leadrepo.Lead
	leadSeq    []uuid.UUID
	leadItems  map[uuid.UUID][]leadrepo.LineItem
	callLogs   []leadrepo.CallLogEntry
	profiles   map[uuid.UUID]string
	nextCode   int
	nextID     int64
}

// New creates an empty store.
func New() *Store {
	return &Store{data: &state{
		products:   map[uuid.UUID]catrepo.Product{},
		orders:     map[uuid.UUID]orderrepo.Order{},
		orderItems: map[uuid.UUID][]orderrepo.LineItem{},
		leads:      map[uuid.UUID]leadrepo.Lead{},
		leadItems:  map[uuid.UUID][]leadrepo.LineItem{},
		profiles:   map[uuid.UUID]string{},
	}}
}

var _ db.Transactor = (*Store)(nil)

// WithinTx runs fn holding the store lock. Writes made by fn are discarded
// when it returns an error. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	txCtx, scope := db.BeginCommitScope(context.WithValue(ctx, txKey{}, true))

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.data = snapshot
				s.mu.Unlock()
				panic(r)
			}
		}()
		return fn(txCtx)
	}()
	if err != nil {
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	scope.Run(ctx)
	return nil
}

// read runs fn against the current data, taking the lock unless ctx already
// belongs to a transaction.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func (s *Store) nextSerial() int64 {
	s.data.nextID++
	return s.data.nextID
}

func (st *state) clone() *state {
	c := &state{
		products:   make(map[uuid.UUID]catrepo.Product, len(st.products)),
		entries:    append([]invrepo.Entry(nil), st.entries...),
		orders:     make(map[uuid.UUID]orderrepo.Order, len(st.orders)),
		orderSeq:   append([]uuid.UUID(nil), st.orderSeq...),
		orderItems: make(map[uuid.UUID][]orderrepo.LineItem, len(st.orderItems)),
		history:    append([]orderrepo.HistoryEntry(nil), st.history...),
		notes:      append([]orderrepo.Note(nil), st.notes...),
		leads:      make(map[uuid.UUID]leadrepo.Lead, len(st.leads)),
		leadSeq:    append([]uuid.UUID(nil), st.leadSeq...),
		leadItems:  make(map[uuid.UUID][]leadrepo.LineItem, len(st.leadItems)),
		callLogs:   append([]leadrepo.CallLogEntry(nil), st.callLogs...),
		profiles:   make(map[uuid.UUID]string, len(st.profiles)),
		nextCode:   st.nextCode,
		nextID:     st.nextID,
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.orderItems {
		c.orderItems[k] = append([]orderrepo.LineItem(nil), v...)
	}
	for k, v := range st.leads {
		c.leads[k] = v
	}
	for k, v := range st.leadItems {
		c.leadItems[k] = append([]leadrepo.LineItem(nil), v...)
	}
	for k, v := range st.profiles {
		c.profiles[k] = v
	}
	return c
}

func now() time.Time {
	return time.Now().UTC()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func reversed(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
