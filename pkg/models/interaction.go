package models

import (
	"fmt"
	"time"
)

// Action is the kind of implicit feedback a user gave on an item.
type Action string

const (
	ActionView     Action = "view"
	ActionCart     Action = "cart"
	ActionPurchase Action = "purchase"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCart, ActionPurchase:
		return true
	}
	return false
}

// Interaction is one row of the append-only interaction log.
type Interaction struct {
	UserID    int64     `json:"user_id" db:"user_id" validate:"required"`
	ItemID    int64     `json:"item_id" db:"item_id" validate:"required"`
	Action    Action    `json:"action" db:"action" validate:"required,oneof=view cart purchase"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

func (i Interaction) String() string {
	return fmt.Sprintf("%s(user=%d item=%d)", i.Action, i.UserID, i.ItemID)
}
