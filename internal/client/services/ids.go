package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
)

// ProvisionalIDs hands out negative ids for records created offline. The
// lowest id issued is kept in metadata so ids stay unique across restarts.
type ProvisionalIDs struct {
	meta metadata.Repository
	now  func() time.Time
	mu   sync.Mutex
}

func NewProvisionalIDs(meta metadata.Repository, now func() time.Time) *ProvisionalIDs {
	if now == nil {
		now = time.Now
	}
	return &ProvisionalIDs{meta: meta, now: now}
}

func (g *ProvisionalIDs) Next(ctx context.Context) (models.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, _, err := metadata.GetInt64(ctx, g.meta, metadata.KeyProvisionalHighWater)
	if err != nil {
		return 0, fmt.Errorf("failed to read provisional id: %w", err)
	}
	id := models.NextProvisionalID(g.now(), models.ID(last))
	if err := metadata.SetInt64(ctx, g.meta, metadata.KeyProvisionalHighWater, int64(id)); err != nil {
		return 0, fmt.Errorf("failed to store provisional id: %w", err)
	}
	return id, nil
}
