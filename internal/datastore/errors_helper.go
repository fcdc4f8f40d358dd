// Package datastore error helpers keep query methods terse.
package datastore

import (
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"gorm.io/gorm"
)

// dbError creates a categorized database error with context pairs.
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// lookupError maps gorm.ErrRecordNotFound to a not-found category so callers
// can distinguish absence from database failure with errors.IsNotFound.
func lookupError(err error, operation, key string, value any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Priority(errors.PriorityLow).
			Context("operation", operation).
			Context(key, value).
			Build()
	}
	return dbError(err, operation, errors.PriorityMedium, key, value)
}
