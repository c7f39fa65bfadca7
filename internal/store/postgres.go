package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/pkg/models"
)

// DatabaseQuerier is the slice of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresStore serves the catalog, interaction log and user table from
// Postgres. It implements CatalogStore, InteractionStore and UserStore.
type PostgresStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewPostgresStore(db DatabaseQuerier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, name, category, brand, price, rating, review_count
		FROM products
		ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.Price, &p.Rating, &p.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ListInteractions(ctx context.Context) ([]models.Interaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, product_id, action, occurred_at
		FROM interactions
		ORDER BY occurred_at, user_id, product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	skipped := 0
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.UserID, &in.ItemID, &in.Action, &in.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		if !in.Action.Valid() {
			skipped++
			continue
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}
	if skipped > 0 {
		s.logger.WithField("skipped", skipped).Warn("Skipped interactions with unknown actions")
	}
	return interactions, nil
}

func (s *PostgresStore) AppendInteraction(ctx context.Context, in models.Interaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO interactions (user_id, product_id, action, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		in.UserID, in.ItemID, string(in.Action), in.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, created_at
		FROM users
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}
