package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
)

// Profile is the public view of an account.
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Balance   int64     `json:"balance"`
	IsAdmin   bool      `json:"isAdmin"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func ProfileFromDataModel(u *userDatamodel.User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Balance:   u.Balance,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type ListResult struct {
	Users []Profile `json:"users"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}
