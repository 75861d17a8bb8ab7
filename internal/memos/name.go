package memos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSubject indicates a user resource name that does not carry a numeric ID.
var ErrInvalidSubject = errors.New("memos: invalid user name")

const userPrefix = "users/"

// ExtractUserID returns the numeric ID of a user resource name such as "users/42".
func ExtractUserID(name string) (int64, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(name), userPrefix)
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSubject, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSubject, name)
	}
	return id, nil
}

// UserName builds the resource name for a numeric user ID.
func UserName(id int64) string {
	return userPrefix + strconv.FormatInt(id, 10)
}

// NormalizeUserName accepts either "users/42" or a bare "42".
func NormalizeUserName(s string) string {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return UserName(id)
	}
	return s
}

// CurrentUserer is the account lookup ResolveSubject falls back to.
type CurrentUserer interface {
	CurrentUser(ctx context.Context) (*User, error)
}

// ResolveSubject returns requested as a resource name, or the token's own
// account when requested is empty. The result is not validated.
func ResolveSubject(ctx context.Context, who CurrentUserer, requested string) (string, error) {
	if s := NormalizeUserName(requested); s != "" {
		return s, nil
	}
	u, err := who.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving current user: %w", err)
	}
	return u.Name, nil
}
