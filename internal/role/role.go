// Package role resolves staff roles into capability sets. Roles are matched
// by name exactly once, when an actor enters the system; everything past the
// boundary checks capabilities.
package role

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// Capability is a bit set of things an actor may do.
type Capability uint8

const (
	Worker Capability = 1 << iota
	Supervisor
	Admin
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{Worker, "worker"},
	{Supervisor, "supervisor"},
	{Admin, "admin"},
}

// ParseCapability maps a capability name to its flag.
func ParseCapability(name string) (Capability, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, c := range capabilityNames {
		if c.name == n {
			return c.cap, nil
		}
	}
	return 0, apperr.Invalid("capabilities", "unknown capability %q", name)
}

// Parse returns the union of the named capabilities.
func Parse(names []string) (Capability, error) {
	var set Capability
	for _, n := range names {
		c, err := ParseCapability(n)
		if err != nil {
			return 0, err
		}
		set |= c
	}
	return set, nil
}

// Has reports whether every flag in want is present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Names lists the capability names in a stable order.
func (c Capability) Names() []string {
	names := []string{}
	for _, cn := range capabilityNames {
		if c.Has(cn.cap) {
			names = append(names, cn.name)
		}
	}
	return names
}

// Encode renders the set as the JSON list stored on models.Role.
func (c Capability) Encode() string {
	data, _ := json.Marshal(c.Names())
	return string(data)
}

// Decode parses the JSON list stored on models.Role. Empty input is an empty set.
func Decode(data string) (Capability, error) {
	if strings.TrimSpace(data) == "" {
		return 0, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return 0, fmt.Errorf("role: decode capabilities: %w", err)
	}
	return Parse(names)
}

// Actor is a user acting on the system together with their capabilities.
// Caps is the union over every asset; Assets, when set, holds what the user
// may do at each one.
type Actor struct {
	UserID uint
	Caps   Capability
	Assets map[uint]Capability
}

// System is the actor used for automated mutations such as generation runs.
var System = Actor{UserID: 0, Caps: Admin}

// Can reports whether the actor holds c at some asset. Admin holds
// everything.
func (a Actor) Can(c Capability) bool {
	return a.Caps.Has(Admin) || a.Caps.Has(c)
}

// CanAt reports whether the actor holds c at assetID. An admin at any asset
// holds everything everywhere. Without per-asset grants Caps applies to
// every asset.
func (a Actor) CanAt(c Capability, assetID uint) bool {
	if a.Caps.Has(Admin) {
		return true
	}
	if a.Assets == nil {
		return a.Caps.Has(c)
	}
	return a.Assets[assetID].Has(c)
}

type grant struct {
	AssetID      uint
	Name         string
	Capabilities string
}

// ResolveActor loads a user with the capabilities of every role the user
// holds, per asset and in union.
func ResolveActor(db *gorm.DB, userID uint) (Actor, error) {
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Actor{}, apperr.NotFound("user", userID)
		}
		return Actor{}, apperr.Storage("role: get user", err)
	}
	if !user.Active {
		return Actor{}, &apperr.PermissionError{ActorID: userID, Action: "act while inactive"}
	}

	var grants []grant
	if err := db.Table("user_assets").
		Select("user_assets.asset_id, roles.name, roles.capabilities").
		Joins("JOIN roles ON roles.id = user_assets.role_id").
		Where("user_assets.user_id = ?", userID).
		Scan(&grants).Error; err != nil {
		return Actor{}, apperr.Storage("role: list roles", err)
	}

	actor := Actor{UserID: userID, Assets: make(map[uint]Capability)}
	for _, g := range grants {
		caps, err := Decode(g.Capabilities)
		if err != nil {
			return Actor{}, fmt.Errorf("role %q: %w", g.Name, err)
		}
		actor.Caps |= caps
		actor.Assets[g.AssetID] |= caps
	}
	return actor, nil
}
