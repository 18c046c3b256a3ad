// Package assignee answers which users may receive generated work.
package assignee

import (
	"context"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// Resolver returns the users eligible for work at an asset under a role.
type Resolver interface {
	EligibleUsers(ctx context.Context, assetID, roleID uint) ([]uint, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, assetID, roleID uint) ([]uint, error)

func (f ResolverFunc) EligibleUsers(ctx context.Context, assetID, roleID uint) ([]uint, error) {
	return f(ctx, assetID, roleID)
}

// DBResolver reads user_assets joined with active users.
type DBResolver struct {
	DB *gorm.DB
}

// EligibleUsers returns active users assigned to assetID under roleID,
// sorted by id.
func (r DBResolver) EligibleUsers(ctx context.Context, assetID, roleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.UserAsset{}).
		Joins("JOIN users ON users.id = user_assets.user_id").
		Where("user_assets.asset_id = ? AND user_assets.role_id = ? AND users.active = ?", assetID, roleID, true).
		Order("user_assets.user_id").
		Pluck("user_assets.user_id", &ids).Error
	if err != nil {
		return nil, apperr.Storage("assignee: eligible users", err)
	}
	return ids, nil
}
