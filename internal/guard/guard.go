// Package guard provides the exclusive-access lock placed in front of each
// store.
package guard

import (
	"fmt"
	"sync"

	"github.com/shelfmark/shelfmark/internal/errors"
)

// ErrPoisoned is returned once a guarded operation has panicked.
var ErrPoisoned = errors.Internal("guard poisoned by an earlier panic")

// Guard serializes operations on one resource. If an operation panics the
// guard is poisoned: the lock is still released, but every later call fails
// with ErrPoisoned instead of touching state that may be half-written.
type Guard struct {
	name     string
	mu       sync.Mutex
	poisoned bool
}

// New returns a guard; name appears in error messages.
func New(name string) *Guard {
	return &Guard{name: name}
}

// Name returns the name the guard was created with.
func (g *Guard) Name() string {
	return g.name
}

// Poisoned reports whether an earlier operation panicked.
func (g *Guard) Poisoned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poisoned
}

// Do runs fn while holding the guard.
func (g *Guard) Do(fn func() error) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		return ErrPoisoned.WithOp(g.name)
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			err = errors.Internal(fmt.Sprintf("panic: %v", r)).WithOp(g.name)
		}
	}()

	return fn()
}

// Run is Do for operations that return a value.
func Run[T any](g *Guard, fn func() (T, error)) (T, error) {
	var out T
	err := g.Do(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
