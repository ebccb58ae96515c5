package device

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IdentityGenerator mints registry identities. Implementations must be
// safe for concurrent use and never return the same identity twice.
type IdentityGenerator interface {
	Next() (string, error)
}

// IdentityFunc adapts a function to IdentityGenerator.
type IdentityFunc func() (string, error)

// Next calls f.
func (f IdentityFunc) Next() (string, error) { return f() }

// UUIDGenerator mints random UUIDv4 identities.
type UUIDGenerator struct{}

// Next returns a fresh UUID string.
func (UUIDGenerator) Next() (string, error) {
	return uuid.New().String(), nil
}

// SequenceGenerator mints sequential identities of the form prefix-000001.
// A non-zero limit bounds the number of identities it will ever issue.
type SequenceGenerator struct {
	prefix string
	limit  uint64
	next   atomic.Uint64
}

// NewSequenceGenerator creates a sequence generator. limit of 0 means unbounded.
func NewSequenceGenerator(prefix string, limit uint64) *SequenceGenerator {
	if prefix == "" {
		prefix = "dev"
	}
	return &SequenceGenerator{prefix: prefix, limit: limit}
}

// Next returns the next identity, or ErrIdentitiesExhausted once limit is reached.
func (g *SequenceGenerator) Next() (string, error) {
	n := g.next.Add(1)
	if g.limit > 0 && n > g.limit {
		return "", fmt.Errorf("%w: limit %d", ErrIdentitiesExhausted, g.limit)
	}
	return fmt.Sprintf("%s-%06d", g.prefix, n), nil
}
