package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListCustomers(ctx context.Context, filter user.Filter) ([]*userDatamodel.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("is_admin = ?", false)
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	switch filter.Status {
	case user.StatusActive:
		q = q.Where("is_active = ?", true)
	case user.StatusInactive:
		q = q.Where("is_active = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*userDatamodel.User
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepository) DeactivateCustomer(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ? AND is_admin = ?", id, false).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
