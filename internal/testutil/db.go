// Package testutil provides in-memory stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database. The pool is pinned to
// one connection so every query sees the same in-memory database.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Asset creates an asset with the given name.
func Asset(t testing.TB, gdb *gorm.DB, name string) models.Asset {
	t.Helper()
	a := models.Asset{Name: name}
	if err := gdb.Create(&a).Error; err != nil {
		t.Fatalf("create asset %s: %v", name, err)
	}
	return a
}

// Role creates a role with the given capability names.
func Role(t testing.TB, gdb *gorm.DB, name string, caps ...string) models.Role {
	t.Helper()
	list := "["
	for i, c := range caps {
		if i > 0 {
			list += ","
		}
		list += fmt.Sprintf("%q", c)
	}
	list += "]"
	r := models.Role{Name: name, Capabilities: list}
	if err := gdb.Create(&r).Error; err != nil {
		t.Fatalf("create role %s: %v", name, err)
	}
	return r
}

// User creates an active user.
func User(t testing.TB, gdb *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.test", Active: true}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// Assign gives user the role at asset.
func Assign(t testing.TB, gdb *gorm.DB, userID, assetID, roleID uint) {
	t.Helper()
	ua := models.UserAsset{UserID: userID, AssetID: assetID, RoleID: roleID}
	if err := gdb.Create(&ua).Error; err != nil {
		t.Fatalf("assign user %d to asset %d: %v", userID, assetID, err)
	}
}

// Template inserts a template directly, bypassing validation. Callers set
// Active explicitly.
func Template(t testing.TB, gdb *gorm.DB, tmpl models.TaskTemplate) models.TaskTemplate {
	t.Helper()
	if tmpl.CompletionOrder == "" {
		tmpl.CompletionOrder = models.OrderIndependent
	}
	if err := gdb.Create(&tmpl).Error; err != nil {
		t.Fatalf("create template %s: %v", tmpl.Name, err)
	}
	return tmpl
}

// Parent links child under parent.
func Parent(t testing.TB, gdb *gorm.DB, childID, parentID uint) {
	t.Helper()
	if err := gdb.Create(&models.TaskParent{ChildTaskID: childID, ParentTaskID: parentID}).Error; err != nil {
		t.Fatalf("link %d under %d: %v", childID, parentID, err)
	}
}

// Group creates an active task group.
func Group(t testing.TB, gdb *gorm.DB, name, start, end string) models.TaskGroup {
	t.Helper()
	g := models.TaskGroup{Name: name, StartTime: start, EndTime: end, IsActive: true}
	if err := gdb.Create(&g).Error; err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	return g
}
