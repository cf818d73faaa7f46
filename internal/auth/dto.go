package auth

import "strings"

type RegisterDTO struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"fullName" validate:"omitempty,max=100"`
	Phone    string `json:"phone" validate:"omitempty,numeric,min=10,max=15"`
}

// Normalize lower-cases the email and strips formatting from the phone number.
func (d RegisterDTO) Normalize() RegisterDTO {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(d.Phone))
	return d
}

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
