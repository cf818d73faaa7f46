package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/auth"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ auth.UserRepository = (*Repository)(nil)

func (r *Repository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *Repository) findOne(ctx context.Context, query string, arg interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrEmailTaken
	}
	return err
}
