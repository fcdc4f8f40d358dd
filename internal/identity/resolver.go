// Package identity resolves the reporter behind a submitted document through
// a prioritized cascade of strategies over a fixed candidate key set. The
// cascade is deterministic: identical input against a stable user registry
// always resolves to the same outcome.
package identity

import (
	"log/slog"
	"strings"

	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"github.com/aquasentinel/aquasentinel/internal/report"
)

// Registry is the user lookup surface the resolver needs. The datastore
// implements it.
type Registry interface {
	GetUserByID(id string) (datastore.User, error)
	GetUserByEmail(email string) (datastore.User, error)
	GetUserByPhone(digits string) (datastore.User, error)
	GetUserByFullName(name string) (datastore.User, error)
}

// candidateKeys are the document keys scanned for reporter hints, in order.
// Field workers and integrating apps disagree on naming, so the list covers
// every variant seen in submitted reports.
var candidateKeys = []string{
	"reported_by_user_id", "reported_by_user", "reported_by",
	"reportedBy", "reportedById", "reportedBy_id",
	"submittedBy", "submitted_by", "submittedById",
	"user_id", "userId", "submitted_by_user_id",
}

// metaKeys are scanned under the document's meta sub-object after the
// top-level candidates.
var metaKeys = []string{"submitted_by", "reported_by"}

// Resolver resolves reporter identities against a user registry.
type Resolver struct {
	registry Registry
	log      *slog.Logger
}

// NewResolver creates a resolver backed by the given registry.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{
		registry: registry,
		log:      logging.ForService("identity"),
	}
}

// Resolve scans the document's candidate keys and returns the resolved
// reporter. Resolution is best-effort and never returns an error: lookup
// failures are logged and treated as misses so fusion is never blocked on
// attribution.
func (r *Resolver) Resolve(doc report.Document) (datastore.User, bool) {
	if doc == nil {
		return datastore.User{}, false
	}

	for _, key := range candidateKeys {
		if value := doc.String(key); value != "" {
			if user, ok := r.resolveValue(value); ok {
				return user, true
			}
		}
	}

	meta := doc.Child("meta")
	for _, key := range metaKeys {
		if value := meta.String(key); value != "" {
			if user, ok := r.resolveValue(value); ok {
				return user, true
			}
		}
	}

	return datastore.User{}, false
}

// resolveValue runs the strategy cascade over one candidate value. The first
// strategy that yields a match wins; a strategy that applies but finds no
// user falls through to the next.
func (r *Resolver) resolveValue(value string) (datastore.User, bool) {
	// raw identity handle, no lookup required
	if IsHandle(value) {
		if user, ok := r.lookup(func() (datastore.User, error) {
			return r.registry.GetUserByID(value)
		}); ok {
			return user, true
		}
		return datastore.User{ID: strings.ToLower(value)}, true
	}

	// email
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		if user, ok := r.lookup(func() (datastore.User, error) {
			return r.registry.GetUserByEmail(value)
		}); ok {
			return user, true
		}
	}

	// phone
	if digits := digitsOf(value); len(digits) >= 6 {
		if user, ok := r.lookup(func() (datastore.User, error) {
			return r.registry.GetUserByPhone(digits)
		}); ok {
			return user, true
		}
	}

	// full name
	if user, ok := r.lookup(func() (datastore.User, error) {
		return r.registry.GetUserByFullName(value)
	}); ok {
		return user, true
	}

	return datastore.User{}, false
}

// lookup runs one registry query, swallowing misses and logging real errors.
func (r *Resolver) lookup(query func() (datastore.User, error)) (datastore.User, bool) {
	user, err := query()
	if err != nil {
		if !errors.IsNotFound(err) {
			r.log.Warn("reporter lookup failed", "error", err)
		}
		return datastore.User{}, false
	}
	return user, true
}

// IsHandle reports whether a value is a 24-character hexadecimal identity
// handle.
func IsHandle(value string) bool {
	if len(value) != 24 {
		return false
	}
	for _, c := range value {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// digitsOf projects a string onto its digit characters.
func digitsOf(value string) string {
	var b strings.Builder
	for _, c := range value {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
