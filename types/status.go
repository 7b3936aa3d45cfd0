package types

import "time"

// Status is a typed, named workflow state (order status, shipment status, ...).
type Status struct {
	ID          string    `json:"id" db:"id"`
	StatusName  string    `json:"status_name" db:"status_name"`
	TypeID      int       `json:"typeid" db:"type_id"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"isactive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
