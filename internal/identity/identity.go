// Package identity supplies the acting user for every mutating call. Users
// are resolved by HTTP basic auth against a bcrypt-hashed directory and
// carried through the request context.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is the acting identity stamped on rows and audit records.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ErrNoUser indicates a mutating call without an acting identity.
var ErrNoUser = errors.New("identity: no user in context")

type ctxKey struct{}

// WithUser attaches the user to the context.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// FromContext extracts the user, if any.
func FromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(ctxKey{}).(User)
	return user, ok
}

// CurrentUser returns the acting user or ErrNoUser.
func CurrentUser(ctx context.Context) (User, error) {
	user, ok := FromContext(ctx)
	if !ok || user.Email == "" {
		return User{}, ErrNoUser
	}
	return user, nil
}

// Directory maps emails to display names and password hashes.
type Directory map[string]DirectoryEntry

// DirectoryEntry is one user record.
type DirectoryEntry struct {
	Name         string
	PasswordHash string
}

// ParseDirectory reads "email|Display Name|bcrypt-hash" entries separated by
// semicolons, the format used by the AUTH_USERS environment variable.
func ParseDirectory(raw string) (Directory, error) {
	dir := Directory{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("identity: malformed directory entry %q", entry)
		}
		dir[parts[0]] = DirectoryEntry{Name: parts[1], PasswordHash: parts[2]}
	}
	return dir, nil
}

// Authenticate checks credentials against the directory.
func (d Directory) Authenticate(email, password string) (User, error) {
	entry, ok := d[email]
	if !ok {
		return User{}, errors.New("identity: unknown user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(password)); err != nil {
		return User{}, errors.New("identity: invalid credentials")
	}
	name := entry.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return User{Email: email, Name: name}, nil
}
