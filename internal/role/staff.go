package role

import (
	"errors"
	"strings"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// CreateUser stores an active staff member.
func CreateUser(db *gorm.DB, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}
	u := models.User{Name: name, Email: strings.ToLower(strings.TrimSpace(email)), Active: true}
	if err := db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Invalid("email", "%q is already registered", email)
		}
		return nil, apperr.Storage("role: create user", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by id.
func ListUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, apperr.Storage("role: list users", err)
	}
	return users, nil
}

// Assign gives a user a role at an asset. Assigning twice is a no-op.
func Assign(db *gorm.DB, userID, assetID uint, roleName string) error {
	var r models.Role
	if err := db.Where("name = ?", roleName).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("role", roleName)
		}
		return apperr.Storage("role: get role", err)
	}
	for _, ref := range []struct {
		model  interface{}
		entity string
		id     uint
	}{
		{&models.User{}, "user", userID},
		{&models.Asset{}, "asset", assetID},
	} {
		var count int64
		if err := db.Model(ref.model).Where("id = ?", ref.id).Count(&count).Error; err != nil {
			return apperr.Storage("role: check "+ref.entity, err)
		}
		if count == 0 {
			return apperr.NotFound(ref.entity, ref.id)
		}
	}

	ua := models.UserAsset{UserID: userID, AssetID: assetID, RoleID: r.ID}
	if err := db.Where(&ua).FirstOrCreate(&ua).Error; err != nil {
		return apperr.Storage("role: assign", err)
	}
	return nil
}
