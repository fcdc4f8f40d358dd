package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderBasic(t *testing.T) {
	err := Newf("classification failed for district %s", "Kamrup").
		Component("classifier").
		Category(CategoryClassification).
		Context("district", "Kamrup").
		Build()

	require.Error(t, err)
	assert.Equal(t, "classifier", err.GetComponent())
	assert.Equal(t, string(CategoryClassification), err.GetCategory())
	assert.Equal(t, "Kamrup", err.GetContext()["district"])
	assert.Contains(t, err.Error(), "classification failed")
}

func TestErrorUnwrap(t *testing.T) {
	base := NewStd("database is locked")
	wrapped := New(base).Category(CategoryDatabase).Build()

	assert.True(t, Is(wrapped, base))
	assert.Equal(t, base, Unwrap(wrapped))
}

func TestIsCategory(t *testing.T) {
	err := Newf("no prediction found").Category(CategoryNotFound).Build()

	assert.True(t, IsCategory(err, CategoryNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsCategory(err, CategoryDatabase))
}

func TestCategoryDetectionFromMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected ErrorCategory
	}{
		{"model load", "failed to load model artifact", CategoryModelLoad},
		{"label load", "label count mismatch", CategoryLabelLoad},
		{"validation", "invalid window parameter", CategoryValidation},
		{"generic", "something went wrong", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Newf("%s", tt.message).Build()
			assert.Equal(t, tt.expected, err.Category)
		})
	}
}

func TestPriorityValidation(t *testing.T) {
	err := Newf("boom").Priority("bogus").Build()
	assert.Equal(t, PriorityMedium, err.GetPriority())

	err = Newf("boom").Priority(PriorityCritical).Build()
	assert.Equal(t, PriorityCritical, err.GetPriority())
}
