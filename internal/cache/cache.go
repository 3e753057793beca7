package cache

import (
	"context"
	"sync"
	"time"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

// CourierCache keeps the courier roster in memory for read paths. The roster
// is small and changes rarely; writes still go straight to the store.
type CourierCache struct {
	mu       sync.RWMutex
	couriers []*models.Courier
}

// NewCourierCache starts empty; Get returns nil until the first Refresh, and
// callers fall back to the store.
func NewCourierCache() *CourierCache {
	return &CourierCache{}
}

func (c *CourierCache) Refresh(ctx context.Context, store repository.Store) error {
	couriers, err := store.ListCouriers(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.couriers = couriers
	c.mu.Unlock()
	return nil
}

func (c *CourierCache) Get() []*models.Courier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.couriers
}

func (c *CourierCache) Invalidate() {
	c.mu.Lock()
	c.couriers = nil
	c.mu.Unlock()
}

func (c *CourierCache) StartAutoRefresh(ctx context.Context, store repository.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Refresh(ctx, store); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
