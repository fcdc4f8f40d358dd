package logging

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForServiceBeforeInit(t *testing.T) {
	old := structuredLogger
	structuredLogger = nil
	t.Cleanup(func() { structuredLogger = old })

	log := ForService("datastore")
	require.NotNil(t, log, "a usable logger is returned even without Init")

	// call sites chain on the returned logger unconditionally
	assert.NotPanics(t, func() {
		log.With("db_type", "SQLite").Info("database opened")
		log.Debug("aggregated outbreak buckets", "buckets", 0)
	})
}

func TestForServiceTagsService(t *testing.T) {
	oldStructured, oldHuman := structuredLogger, humanReadableLogger
	t.Cleanup(func() {
		structuredLogger, humanReadableLogger = oldStructured, oldHuman
	})

	var buf bytes.Buffer
	SetOutput(&buf, io.Discard)

	ForService("fusion").Info("pipeline ready")
	assert.Contains(t, buf.String(), `"service":"fusion"`)
}
