package model

import "context"

// Visibility is Steam's communityvisibilitystate.
type Visibility int

const (
	VisibilityPrivate     Visibility = 1
	VisibilityFriendsOnly Visibility = 2
	VisibilityPublic      Visibility = 3
)

var userMapping = Mapping{
	Table:   "users",
	Columns: []string{"id", "persona", "name", "profile_url", "image_url", "visibility_state"},
}

// User is a Steam account. The ID is the 64-bit SteamID and is never
// generated locally.
//
// Persona is the defining field: a stored user whose Persona is nil is
// treated as incomplete and fetched again.
type User struct {
	ID         int64       `json:"id"`
	Persona    *string     `json:"persona"`
	RealName   *string     `json:"realName"`
	ProfileURL *string     `json:"profileUrl"`
	AvatarURL  *string     `json:"avatarUrl"`
	Visibility *Visibility `json:"visibility"`
	Timestamps
}

func (u *User) Mapping() *Mapping { return &userMapping }

func (u *User) Values() []any {
	return []any{u.ID, u.Persona, u.RealName, u.ProfileURL, u.AvatarURL, u.Visibility}
}

func (u *User) Targets() []any {
	return []any{&u.ID, &u.Persona, &u.RealName, &u.ProfileURL, &u.AvatarURL, &u.Visibility}
}

func (u *User) Blank() Entity { return &User{} }

func (u *User) SetKey(id int64) { u.ID = id }

// Public reports whether the profile exposes playtime.
func (u *User) Public() bool {
	return u.Visibility != nil && *u.Visibility == VisibilityPublic
}

// Complete reports whether the profile has been fetched at least once.
func (u *User) Complete() bool {
	return u.Persona != nil
}

func (u *User) Save(ctx context.Context, s Store) error { return save(ctx, s, u) }

func (u *User) Read(ctx context.Context, s Store) (*User, error) { return read(ctx, s, u) }
