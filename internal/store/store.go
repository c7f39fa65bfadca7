// Package store provides the engine's view of its external data
// collaborators: the product catalog, the append-only interaction log and
// the user table. The engine consumes full snapshots of these at fit time;
// it never writes to them.
package store

import (
	"context"

	"github.com/merchkit/recsys/pkg/models"
)

// CatalogStore enumerates the product table keyed by item id.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// InteractionStore is the append-only interaction log.
type InteractionStore interface {
	ListInteractions(ctx context.Context) ([]models.Interaction, error)
	AppendInteraction(ctx context.Context, in models.Interaction) error
}

// UserStore enumerates registered users. A user id absent from this table
// is unknown to the engine, not merely cold-start.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}
