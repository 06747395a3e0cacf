package models

import "time"

// Account captures application-facing fields for an authenticated identity.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds optional contact and display metadata, one per account.
type Profile struct {
	AccountID         int64     `json:"account_id"`
	PhoneNumber       string    `json:"phone_number"`
	Bio               string    `json:"bio"`
	AvatarURL         string    `json:"avatar_url"`
	PreferredCurrency string    `json:"preferred_currency"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultCurrency is assigned to new profiles.
const DefaultCurrency = "USD"

// OwningAccount makes a profile subject to the same ownership check as portfolio data.
func (p Profile) OwningAccount() int64 { return p.AccountID }
