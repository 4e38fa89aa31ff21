package auth

import (
	"context"

	"github.com/pkg/errors"
)

const (
	XUserNameHeader  = "X-User-Name"
	XUserRoleHeader  = "X-User-Role"
	XUserEmailHeader = "X-User-Email"
)

const (
	RoleCustomer  = "Customer"
	RoleLibrarian = "Librarian"
)

var ErrNoAuth = errors.New("no auth in context")

type ctxKey int

const authKey ctxKey = iota + 1

// Identity is what the identity provider asserts about the caller.
// The service trusts it as given.
type Identity struct {
	Username string
	Role     string
	Email    string
}

func SetAuthContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, authKey, id)
}

func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(authKey).(Identity)
	if !ok || id.Username == "" {
		return Identity{}, ErrNoAuth
	}
	return id, nil
}
