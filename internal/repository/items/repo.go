// Package items reads lost/found reports from the item store. The store is
// an external collaborator: this repository never writes to it.
package items

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/db"
	"github.com/lostfound-cloud/matcher/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "items:"

// store is the consumer interface for item records (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
}

// Repo implements usecase/match.Repository over a JSON document store.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates an item repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// List returns every item in the given collection. Keys are sorted so the
// scan order is deterministic; ranking uses it as the tie-break order.
// Individual malformed records are skipped, store-level failures are not.
func (r *Repo) List(ctx context.Context, collection string) ([]domain.Item, error) {
	pattern := keyPrefix + collection + ":*"

	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	sort.Strings(keys)

	result := make([]domain.Item, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.JSONGet(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				// Deleted between SCAN and JSON.GET.
				continue
			}
			return nil, fmt.Errorf("json.get %s: %w", key, err)
		}

		item, err := itemFromJSON(key, data)
		if err != nil {
			r.logger.Warn("Skipping malformed item record",
				zap.String("key", key), zap.Error(err))
			continue
		}
		result = append(result, item)
	}

	return result, nil
}
