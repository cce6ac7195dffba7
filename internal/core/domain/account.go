package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// BaseRole is held by every account whether or not it is stored.
const BaseRole = "ROLE_USER"

const (
	RoleAdmin = "ROLE_ADMIN"
)

// Account models a registered user. Fields are unexported so that every
// mutation goes through a setter.
type Account struct {
	id              string
	username        string
	email           string
	address         string
	phone           string
	passwordHash    string
	roles           []string
	profileImageRef *string
	createdAt       time.Time
	updatedAt       time.Time

	// plainPassword lives only between submission and hashing or session start.
	plainPassword string
}

// NewAccount creates an account with an immutable id and a canonical username.
func NewAccount(id, username string) *Account {
	return &Account{
		id:       id,
		username: CanonicalUsername(username),
	}
}

// AccountRecord is the storage shape of an account. Repositories build one
// from their rows or documents and hand it to RestoreAccount.
type AccountRecord struct {
	ID              string
	Username        string
	Email           string
	Address         string
	Phone           string
	PasswordHash    string
	Roles           []string
	ProfileImageRef *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RestoreAccount rebuilds a persisted account.
func RestoreAccount(r AccountRecord) *Account {
	return &Account{
		id:              r.ID,
		username:        r.Username,
		email:           r.Email,
		address:         r.Address,
		phone:           r.Phone,
		passwordHash:    r.PasswordHash,
		roles:           append([]string(nil), r.Roles...),
		profileImageRef: r.ProfileImageRef,
		createdAt:       r.CreatedAt,
		updatedAt:       r.UpdatedAt,
	}
}

// Record returns the storage shape of the account. The plaintext password is
// not part of it.
func (a *Account) Record() AccountRecord {
	return AccountRecord{
		ID:              a.id,
		Username:        a.username,
		Email:           a.email,
		Address:         a.address,
		Phone:           a.phone,
		PasswordHash:    a.passwordHash,
		Roles:           a.Roles(),
		ProfileImageRef: a.profileImageRef,
		CreatedAt:       a.createdAt,
		UpdatedAt:       a.updatedAt,
	}
}

func (a *Account) ID() string           { return a.id }
func (a *Account) Username() string     { return a.username }
func (a *Account) Email() string        { return a.email }
func (a *Account) Address() string      { return a.address }
func (a *Account) Phone() string        { return a.phone }
func (a *Account) PasswordHash() string { return a.passwordHash }
func (a *Account) CreatedAt() time.Time { return a.createdAt }
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// PlainPassword returns the transient plaintext, empty once erased.
func (a *Account) PlainPassword() string { return a.plainPassword }

// ProfileImageRef returns the profile image reference, or "" when unset.
func (a *Account) ProfileImageRef() string {
	if a.profileImageRef == nil {
		return ""
	}
	return *a.profileImageRef
}

// Roles returns a copy of the stored roles, without the base role.
func (a *Account) Roles() []string {
	return append([]string(nil), a.roles...)
}

// EffectiveRoles returns the stored roles with BaseRole unioned in.
func (a *Account) EffectiveRoles() []string {
	out := make([]string, 0, len(a.roles)+1)
	seen := make(map[string]struct{}, len(a.roles)+1)
	for _, r := range append(a.Roles(), BaseRole) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// HasRole reports whether role is among the effective roles.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.EffectiveRoles() {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Account) SetUsername(username string) *Account {
	a.username = CanonicalUsername(username)
	return a
}

func (a *Account) SetEmail(email string) *Account {
	a.email = strings.TrimSpace(email)
	return a
}

func (a *Account) SetAddress(address string) *Account {
	a.address = address
	return a
}

func (a *Account) SetPhone(phone string) *Account {
	a.phone = phone
	return a
}

func (a *Account) SetPasswordHash(hash string) *Account {
	a.passwordHash = hash
	return a
}

// SetRoles replaces the stored roles. BaseRole is dropped since it is implied.
func (a *Account) SetRoles(roles []string) *Account {
	stored := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == BaseRole || r == "" {
			continue
		}
		stored = append(stored, r)
	}
	a.roles = stored
	return a
}

// SetProfileImageRef sets the image reference; "" clears it.
func (a *Account) SetProfileImageRef(ref string) *Account {
	if ref == "" {
		a.profileImageRef = nil
		return a
	}
	a.profileImageRef = &ref
	return a
}

func (a *Account) SetPlainPassword(plain string) *Account {
	a.plainPassword = plain
	return a
}

func (a *Account) SetTimestamps(created, updated time.Time) *Account {
	a.createdAt = created
	a.updatedAt = updated
	return a
}

// EraseCredentials clears the transient plaintext password.
func (a *Account) EraseCredentials() {
	a.plainPassword = ""
}

type accountJSON struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Address         string    `json:"adresse,omitempty"`
	Phone           string    `json:"telephone,omitempty"`
	Roles           []string  `json:"roles"`
	ProfileImageRef *string   `json:"image"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MarshalJSON renders the public view of the account. Credentials are never
// part of it.
func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		ID:              a.id,
		Username:        a.username,
		Email:           a.email,
		Address:         a.address,
		Phone:           a.phone,
		Roles:           a.EffectiveRoles(),
		ProfileImageRef: a.profileImageRef,
		CreatedAt:       a.createdAt,
		UpdatedAt:       a.updatedAt,
	})
}

// CanonicalUsername is the form usernames are looked up and stored in:
// surrounding space trimmed, lower-cased.
func CanonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
