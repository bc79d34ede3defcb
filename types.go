package yggauth

import (
	"context"
	"time"
)

// UserRecord is the account record returned by [UserProvider]. Identifier is
// the login name (usually an email address); SelectedProfileID is the profile
// the user currently plays as and may be empty.
type UserRecord struct {
	UserID            string
	Identifier        string
	PasswordHash      string
	SelectedProfileID string
	PreferredLanguage string
}

// ProfileRecord is the stored form of a player profile. Skin and cape are
// relative texture paths; CreatedAt feeds the signed textures payload
// timestamp.
type ProfileRecord struct {
	ProfileID string
	Name      string
	OwnerID   string
	SkinPath  string
	CapePath  string
	CreatedAt time.Time
}

// UserProvider is the interface callers implement to integrate yggauth with
// their user database. The engine treats it as an opaque external store: it
// never caches provider results and never writes anything except the
// selected-profile pointer during refresh.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	ProfilesByOwner(ctx context.Context, userID string) ([]ProfileRecord, error)
	GetProfileByID(ctx context.Context, profileID string) (ProfileRecord, error)
	UpdateSelectedProfile(ctx context.Context, userID, profileID string) error
}

// Property is a named profile or user attribute. Signature is filled only
// when the property has been countersigned by the engine's key pair.
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// Profile is the serialized player profile view exchanged with clients and
// game servers. IDs are UUID hex without dashes.
type Profile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// UserView is the serialized account view optionally attached to
// authenticate and refresh responses.
type UserView struct {
	ID         string     `json:"id"`
	Properties []Property `json:"properties"`
}

// AuthResult is returned by [Engine.Authenticate].
type AuthResult struct {
	AccessToken       string     `json:"accessToken"`
	ClientToken       string     `json:"clientToken"`
	AvailableProfiles []Profile  `json:"availableProfiles"`
	SelectedProfile   *Profile   `json:"selectedProfile,omitempty"`
	User              *UserView  `json:"user,omitempty"`
}

// RefreshResult is returned by [Engine.Refresh]. The new access token is
// bound to the same client token as the spent one.
type RefreshResult struct {
	AccessToken     string    `json:"accessToken"`
	ClientToken     string    `json:"clientToken"`
	SelectedProfile *Profile  `json:"selectedProfile,omitempty"`
	User            *UserView `json:"user,omitempty"`
}
