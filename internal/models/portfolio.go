package models

import "time"

// Portfolio groups assets under a single owning account.
type Portfolio struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Portfolio) OwningAccount() int64 { return p.OwnerID }
