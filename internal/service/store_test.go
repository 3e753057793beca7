package service

import (
	"context"
	"sync"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

// memData is the shared state behind memStore. One mutex serializes
// transactions, which makes WithTx behave like the serializable transactions
// the real store provides.
type memData struct {
	mu          sync.Mutex
	owners      map[string]*models.Owner
	orders      map[string]*models.Order
	payments    map[string]*models.PaymentRecord
	paymentSeq  []string
	couriers    map[string]*models.Courier
	assignments map[string]*models.DeliveryAssignment
	events      []*models.OrderEvent
	batches     map[string]*models.StockBatch
	adjustments []*models.StockAdjustment
	stockTotal  int
}

type memStore struct {
	d    *memData
	inTx bool
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		owners:      map[string]*models.Owner{},
		orders:      map[string]*models.Order{},
		payments:    map[string]*models.PaymentRecord{},
		couriers:    map[string]*models.Courier{},
		assignments: map[string]*models.DeliveryAssignment{},
		batches:     map[string]*models.StockBatch{},
	}}
}

func (m *memStore) WithTx(_ context.Context, fn func(repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return fn(&memStore{d: m.d, inTx: true})
}

func (m *memStore) locked(fn func() error) error {
	if m.inTx {
		return fn()
	}
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return fn()
}

func (m *memStore) CreateOwner(_ context.Context, o *models.Owner) error {
	return m.locked(func() error {
		cp := *o
		m.d.owners[o.ID] = &cp
		return nil
	})
}

func (m *memStore) GetOwner(_ context.Context, id string) (*models.Owner, error) {
	var out *models.Owner
	err := m.locked(func() error {
		if o, ok := m.d.owners[id]; ok {
			cp := *o
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) ReserveAllowance(_ context.Context, ownerID string, amount int) error {
	return m.locked(func() error {
		o, ok := m.d.owners[ownerID]
		if !ok {
			return apperrors.NotFound("owner %s not found", ownerID)
		}
		if o.RemainingQuota < amount {
			return apperrors.Conflict("insufficient allowance: %d requested, %d remaining", amount, o.RemainingQuota)
		}
		o.RemainingQuota -= amount
		return nil
	})
}

func (m *memStore) ReleaseAllowance(_ context.Context, ownerID string, amount int) error {
	return m.locked(func() error {
		o, ok := m.d.owners[ownerID]
		if !ok {
			return apperrors.NotFound("owner %s not found", ownerID)
		}
		o.RemainingQuota += amount
		return nil
	})
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order) error {
	return m.locked(func() error {
		cp := *o
		m.d.orders[o.ID] = &cp
		return nil
	})
}

func (m *memStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	var out *models.Order
	err := m.locked(func() error {
		if o, ok := m.d.orders[id]; ok {
			cp := *o
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) ListOrders(_ context.Context, f repository.OrderFilter) ([]*models.Order, error) {
	var out []*models.Order
	err := m.locked(func() error {
		for _, o := range m.d.orders {
			if f.OwnerID != "" && o.OwnerID != f.OwnerID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			cp := *o
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (m *memStore) UpdateOrder(_ context.Context, o *models.Order) error {
	return m.locked(func() error {
		if _, ok := m.d.orders[o.ID]; !ok {
			return apperrors.NotFound("order %s not found", o.ID)
		}
		cp := *o
		m.d.orders[o.ID] = &cp
		return nil
	})
}

func (m *memStore) CreatePayment(_ context.Context, p *models.PaymentRecord) error {
	return m.locked(func() error {
		if p.Reference != "" && m.referenceLive(p.Reference) {
			return apperrors.Conflict("payment reference %q already in use", p.Reference)
		}
		cp := *p
		m.d.payments[p.ID] = &cp
		m.d.paymentSeq = append(m.d.paymentSeq, p.ID)
		return nil
	})
}

func (m *memStore) GetPayment(_ context.Context, id string) (*models.PaymentRecord, error) {
	var out *models.PaymentRecord
	err := m.locked(func() error {
		if p, ok := m.d.payments[id]; ok {
			cp := *p
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) LatestPayment(_ context.Context, orderID string) (*models.PaymentRecord, error) {
	var out *models.PaymentRecord
	err := m.locked(func() error {
		for i := len(m.d.paymentSeq) - 1; i >= 0; i-- {
			p := m.d.payments[m.d.paymentSeq[i]]
			if p.OrderID == orderID {
				cp := *p
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (m *memStore) ListPayments(_ context.Context, orderID string) ([]*models.PaymentRecord, error) {
	var out []*models.PaymentRecord
	err := m.locked(func() error {
		for _, id := range m.d.paymentSeq {
			if p := m.d.payments[id]; p.OrderID == orderID {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (m *memStore) UpdatePayment(_ context.Context, p *models.PaymentRecord) error {
	return m.locked(func() error {
		old, ok := m.d.payments[p.ID]
		if !ok {
			return apperrors.NotFound("payment %s not found", p.ID)
		}
		if p.Reference != "" && p.Reference != old.Reference && m.referenceLive(p.Reference) {
			return apperrors.Conflict("payment reference %q already in use", p.Reference)
		}
		cp := *p
		m.d.payments[p.ID] = &cp
		return nil
	})
}

func (m *memStore) CancelOpenPayments(_ context.Context, orderID string) error {
	return m.locked(func() error {
		for _, p := range m.d.payments {
			if p.OrderID != orderID {
				continue
			}
			if p.Status != models.PaymentStatusSuccess && p.Status != models.PaymentStatusCancelled {
				p.Status = models.PaymentStatusCancelled
			}
		}
		return nil
	})
}

func (m *memStore) ReferenceInUse(_ context.Context, reference string) (bool, error) {
	var used bool
	err := m.locked(func() error {
		used = m.referenceLive(reference)
		return nil
	})
	return used, err
}

// referenceLive must be called with the data locked.
func (m *memStore) referenceLive(ref string) bool {
	for _, p := range m.d.payments {
		if p.Reference != ref {
			continue
		}
		if p.Status == models.PaymentStatusPending || p.Status == models.PaymentStatusSuccess {
			return true
		}
	}
	return false
}

func (m *memStore) CreateCourier(_ context.Context, c *models.Courier) error {
	return m.locked(func() error {
		cp := *c
		m.d.couriers[c.ID] = &cp
		return nil
	})
}

func (m *memStore) GetCourier(_ context.Context, id string) (*models.Courier, error) {
	var out *models.Courier
	err := m.locked(func() error {
		if c, ok := m.d.couriers[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) ListCouriers(_ context.Context) ([]*models.Courier, error) {
	var out []*models.Courier
	err := m.locked(func() error {
		for _, c := range m.d.couriers {
			cp := *c
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (m *memStore) SetCourierActive(_ context.Context, id string, active bool) error {
	return m.locked(func() error {
		c, ok := m.d.couriers[id]
		if !ok {
			return apperrors.NotFound("courier %s not found", id)
		}
		c.Active = active
		return nil
	})
}

func (m *memStore) CreateAssignment(_ context.Context, a *models.DeliveryAssignment) error {
	return m.locked(func() error {
		for _, other := range m.d.assignments {
			if other.OrderID == a.OrderID {
				return apperrors.Conflict("order %s already has a delivery assignment", a.OrderID)
			}
		}
		cp := *a
		m.d.assignments[a.ID] = &cp
		return nil
	})
}

func (m *memStore) GetAssignment(_ context.Context, id string) (*models.DeliveryAssignment, error) {
	var out *models.DeliveryAssignment
	err := m.locked(func() error {
		if a, ok := m.d.assignments[id]; ok {
			cp := *a
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) AssignmentByOrder(_ context.Context, orderID string) (*models.DeliveryAssignment, error) {
	var out *models.DeliveryAssignment
	err := m.locked(func() error {
		for _, a := range m.d.assignments {
			if a.OrderID == orderID {
				cp := *a
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (m *memStore) UpdateAssignment(_ context.Context, a *models.DeliveryAssignment) error {
	return m.locked(func() error {
		if _, ok := m.d.assignments[a.ID]; !ok {
			return apperrors.NotFound("assignment %s not found", a.ID)
		}
		cp := *a
		m.d.assignments[a.ID] = &cp
		return nil
	})
}

func (m *memStore) AppendEvent(_ context.Context, e *models.OrderEvent) error {
	return m.locked(func() error {
		cp := *e
		m.d.events = append(m.d.events, &cp)
		return nil
	})
}

func (m *memStore) ListEvents(_ context.Context, orderID string) ([]*models.OrderEvent, error) {
	var out []*models.OrderEvent
	err := m.locked(func() error {
		for _, e := range m.d.events {
			if e.OrderID == orderID {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (m *memStore) CreateBatch(_ context.Context, b *models.StockBatch) error {
	return m.locked(func() error {
		cp := *b
		m.d.batches[b.ID] = &cp
		return nil
	})
}

func (m *memStore) GetBatch(_ context.Context, id string) (*models.StockBatch, error) {
	var out *models.StockBatch
	err := m.locked(func() error {
		if b, ok := m.d.batches[id]; ok {
			cp := *b
			out = &cp
		}
		return nil
	})
	return out, err
}

func (m *memStore) DeleteBatch(_ context.Context, id string) error {
	return m.locked(func() error {
		if _, ok := m.d.batches[id]; !ok {
			return apperrors.NotFound("batch %s not found", id)
		}
		delete(m.d.batches, id)
		return nil
	})
}

func (m *memStore) InsertAdjustment(_ context.Context, a *models.StockAdjustment) error {
	return m.locked(func() error {
		cp := *a
		m.d.adjustments = append(m.d.adjustments, &cp)
		m.d.stockTotal += a.Delta
		return nil
	})
}

func (m *memStore) StockTotal(_ context.Context) (int, error) {
	var total int
	err := m.locked(func() error {
		total = m.d.stockTotal
		return nil
	})
	return total, err
}

func (m *memStore) ListAdjustments(_ context.Context, limit int64) ([]*models.StockAdjustment, error) {
	var out []*models.StockAdjustment
	err := m.locked(func() error {
		n := len(m.d.adjustments)
		for i := n - 1; i >= 0 && int64(len(out)) < limit; i-- {
			cp := *m.d.adjustments[i]
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

// quota reads the owner's remaining allowance directly, for assertions.
func (m *memStore) quota(ownerID string) int {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	return m.d.owners[ownerID].RemainingQuota
}

var _ repository.Store = (*memStore)(nil)
