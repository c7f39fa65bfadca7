package models

import "time"

// Product is a single catalog entry. The catalog is owned by an external
// collaborator; the engine only ever holds a read-only view of it.
type Product struct {
	ID          int64   `json:"product_id" db:"product_id"`
	Name        string  `json:"name" db:"name"`
	Category    string  `json:"category" db:"category" validate:"required"`
	Brand       string  `json:"brand" db:"brand" validate:"required"`
	Price       float64 `json:"price" db:"price" validate:"min=0"`
	Rating      float64 `json:"rating" db:"rating" validate:"min=1,max=5"`
	ReviewCount int     `json:"review_count" db:"review_count" validate:"min=0"`
}

// User is a registered user as known to the user table. A user id that is
// absent from this table is unknown (not merely cold-start).
type User struct {
	ID        int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
