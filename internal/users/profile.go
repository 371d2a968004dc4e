// Package users exposes profile, cash and session-flag projections plus
// account deletion.
package users

import (
	"context"
	"encoding/json"

	"github.com/walknrun/walkrun-backend/pkg/rtdb"
	"github.com/walknrun/walkrun-backend/pkg/types"
)

// Profile is the stored user record at users/<uid>. Legacy clients wrote
// weight as a quoted number, so it decodes through LooseFloat.
type Profile struct {
	Name        string           `json:"name,omitempty"`
	Email       string           `json:"email,omitempty"`
	Password    string           `json:"password,omitempty"`
	Birth       string           `json:"birth,omitempty"`
	Sex         string           `json:"sex,omitempty"`
	Weight      types.LooseFloat `json:"weight,omitempty"`
	DailyPoints float64          `json:"dailyPoints,omitempty"`
	MonthPoints float64          `json:"monthPoints,omitempty"`
	Cashes      float64          `json:"cashes,omitempty"`
	Doing       bool             `json:"doing,omitempty"`
}

// ProfilePath returns the datastore path of a user record.
func ProfilePath(uid string) string {
	return "users/" + uid
}

// LoadProfile reads a user record. A nil profile with nil error means the
// record does not exist; callers decide which domain error that maps to.
func LoadProfile(ctx context.Context, store rtdb.Store, uid string) (*Profile, error) {
	raw, err := store.Get(ctx, ProfilePath(uid))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
