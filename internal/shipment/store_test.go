package shipment

import (
	"context"
	"sync"
	"time"

	"github.com/parcelhub/parcelhub/internal/notify"
)

// memStore is an in-memory Repository with the same compare-and-set
// semantics as the postgres store.
type memStore struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	offices   map[string]Office
	buses     map[string]BusRef
	shipments map[string]*Shipment

	// beforeCAS runs inside the transaction just before the status update.
	beforeCAS func()
	getErr    error
}

func newMemStore() *memStore {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &memStore{
		offices: map[string]Office{
			"BranchA": {Slug: "BranchA", Title: "Branch A", OperationalDate: day},
			"BranchB": {Slug: "BranchB", Title: "Branch B", OperationalDate: day},
			"BranchC": {Slug: "BranchC", Title: "Branch C", OperationalDate: day},
		},
		buses: map[string]BusRef{
			"bus-1": {Slug: "bus-1", BusNumber: "BA 1 KHA 1234", PreferredDays: []int{1, 3, 5}},
		},
		shipments: map[string]*Shipment{},
	}
}

// seed stores a BOOKED shipment between source and destination.
func (m *memStore) seed(trackingID, source, destination string) *Shipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := &Shipment{
		Slug:          "slug-" + trackingID,
		TrackingID:    trackingID,
		SenderName:    "Sita",
		SenderPhone:   "+9779800000001",
		ReceiverName:  "Ram",
		ReceiverPhone: "+9779800000002",
		Source:        m.offices[source],
		Destination:   m.offices[destination],
		Price:         450,
		PaymentMode:   SenderPays,
		CurrentStatus: StatusBooked,
		History: []TrackingEvent{{
			Status: StatusBooked, Location: m.offices[source].Title, Note: bookedRemark, Timestamp: at,
		}},
		Day:       at,
		CreatedAt: at,
		UpdatedAt: at,
	}
	m.shipments[trackingID] = s
	return s.Clone()
}

func (m *memStore) status(trackingID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shipments[trackingID].CurrentStatus
}

func (m *memStore) historyLen(trackingID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shipments[trackingID].History)
}

func (m *memStore) GetByTrackingID(_ context.Context, trackingID string) (*Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.shipments[trackingID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) GetOffice(_ context.Context, slug string) (*Office, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offices[slug]
	if !ok {
		return nil, ErrDestinationNotFound
	}
	return &o, nil
}

func (m *memStore) GetBus(_ context.Context, slug string) (*BusRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buses[slug]
	if !ok {
		return nil, ErrBusNotFound
	}
	return &b, nil
}

func (m *memStore) List(_ context.Context, filter ListFilter) ([]Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Shipment
	for _, s := range m.shipments {
		if filter.OfficeID != "" && !s.Involves(filter.OfficeID) {
			continue
		}
		if filter.Status != "" && s.CurrentStatus != filter.Status {
			continue
		}
		out = append(out, *s.Clone())
	}
	return out, nil
}

// WithTx stages writes and applies them only when fn succeeds.
func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	tx := &memTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apply := range tx.staged {
		apply()
	}
	return nil
}

type memTx struct {
	store  *memStore
	staged []func()
}

func (t *memTx) InsertShipment(_ context.Context, s *Shipment) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, taken := t.store.shipments[s.TrackingID]; taken {
		return ErrTrackingIDTaken
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := s.Clone()
	cp.History = nil
	t.staged = append(t.staged, func() { t.store.shipments[cp.TrackingID] = cp })
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, slug string, ev TrackingEvent) error {
	t.staged = append(t.staged, func() {
		for _, s := range t.store.shipments {
			if s.Slug == slug {
				s.History = append(s.History, ev)
				return
			}
		}
	})
	return nil
}

func (t *memTx) CompareAndSetStatus(_ context.Context, trackingID string, from, to Status) (bool, error) {
	if t.store.beforeCAS != nil {
		t.store.beforeCAS()
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	s, ok := t.store.shipments[trackingID]
	if !ok || s.CurrentStatus != from {
		return false, nil
	}
	t.staged = append(t.staged, func() { s.CurrentStatus = to })
	return true, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) calls() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}
