package permission

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Scope names the capability a permission request covers.
type Scope string

// Known scopes.
const (
	ScopeForeground   Scope = "foreground"
	ScopeBackground   Scope = "background"
	ScopeNotification Scope = "notification"
)

// Gate is implemented by every component that needs a permission before use.
type Gate interface {
	RequestPermissions(ctx context.Context) error
}

// DeniedError reports a refused permission scope.
type DeniedError struct {
	// Scope is the refused capability.
	Scope Scope
}

// Error implements error.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s permission denied", e.Scope)
}

// ErrNotGranted is returned by operations attempted before their gate was granted.
var ErrNotGranted = errors.New("permission not granted")

// Denied builds a *DeniedError for scope.
func Denied(scope Scope) error {
	return &DeniedError{Scope: scope}
}

// IsDenied reports whether err carries a *DeniedError and returns its scope.
func IsDenied(err error) (Scope, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Scope, true
	}

	return "", false
}

// RequestAll asks every gate in parallel and waits for all of them.
// The first failure is returned; the other requests still run to completion.
func RequestAll(ctx context.Context, gates ...Gate) error {
	var group errgroup.Group

	for _, gate := range gates {
		if gate == nil {
			continue
		}

		group.Go(func() error {
			return gate.RequestPermissions(ctx)
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("request permissions: %w", err)
	}

	return nil
}
