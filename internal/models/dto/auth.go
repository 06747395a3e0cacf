package dto

import "github.com/hongminglow/coinfolio-be/internal/models"

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  models.Account `json:"user"`
}

// ProfileUpdateRequest carries a partial profile update; nil fields are left untouched.
type ProfileUpdateRequest struct {
	PhoneNumber       *string `json:"phone_number"`
	Bio               *string `json:"bio"`
	AvatarURL         *string `json:"avatar_url"`
	PreferredCurrency *string `json:"preferred_currency"`
}
