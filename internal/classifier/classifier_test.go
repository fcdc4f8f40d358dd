package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() *conf.Settings {
	return &conf.Settings{}
}

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(testSettings())
	require.NoError(t, err, "embedded default model must load")
	return c
}

func TestNewWithEmbeddedModel(t *testing.T) {
	c := newTestClassifier(t)
	labels := c.Labels()
	assert.NotEmpty(t, labels)
	assert.Contains(t, labels, "Cholera")
	assert.Contains(t, labels, "Typhoid")
}

func TestNewFailsOnMissingModel(t *testing.T) {
	settings := testSettings()
	settings.Classifier.ModelPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelInit))
}

func TestParseArtifactRejectsSchemaDrift(t *testing.T) {
	_, err := ParseArtifact([]byte(`{
		"feature_columns": ["district", "ph"],
		"categorical_columns": ["district"],
		"labels": ["Cholera"]
	}`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
}

func TestParseArtifactRejectsBadTree(t *testing.T) {
	data, err := os.ReadFile("data/default_model.json")
	require.NoError(t, err)

	artifact, err := ParseArtifact(data)
	require.NoError(t, err)

	artifact.Trees[0].Class = 99
	assert.Error(t, artifact.validate())
}

func TestParseArtifactRejectsCyclicTree(t *testing.T) {
	data, err := os.ReadFile("data/default_model.json")
	require.NoError(t, err)

	artifact, err := ParseArtifact(data)
	require.NoError(t, err)

	// two split nodes referencing each other; in-range and not
	// self-referential, but evaluation would never reach a leaf
	artifact.Trees[0].Nodes = []TreeNode{
		{Feature: 0, Threshold: 1, Left: 1, Right: 1},
		{Feature: 0, Threshold: 1, Left: 0, Right: 0},
	}

	err = artifact.validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))
}

func TestPredictDeterministic(t *testing.T) {
	c := newTestClassifier(t)
	vector := &features.Vector{District: "Kamrup", Ph: 6.2, Coliform: 120, Diarrhea: 1, Vomiting: 1}

	first, err := c.Predict(vector)
	require.NoError(t, err)
	second, err := c.Predict(vector)
	require.NoError(t, err)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, *vector, first.Features, "input vector is echoed back")
}

func TestPredictKnownProfiles(t *testing.T) {
	c := newTestClassifier(t)

	choleraLike := &features.Vector{
		Ph: 6.2, Turbidity: 8.1, Tds: 340, Coliform: 120,
		Diarrhea: 1, Vomiting: 1, Dehydration: 1,
	}
	p, err := c.Predict(choleraLike)
	require.NoError(t, err)
	assert.Equal(t, "Cholera", p.Label)

	typhoidLike := &features.Vector{
		Ph: 7.0, Turbidity: 2, Tds: 600, Coliform: 10,
		Fever: 1, Headache: 1,
	}
	p, err = c.Predict(typhoidLike)
	require.NoError(t, err)
	assert.Equal(t, "Typhoid", p.Label)
}

func TestPredictNilVector(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.Predict(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestExternalLabelOverride(t *testing.T) {
	labelPath := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(labelPath, []byte(
		"# retrained decoder\nKolera\nLoose Motion Disease\nDysentery\nHepatitis A\nEnteric Fever\n"), 0o644))

	settings := testSettings()
	settings.Classifier.LabelPath = labelPath

	c, err := New(settings)
	require.NoError(t, err)
	assert.Equal(t, "Kolera", c.Labels()[0])
	assert.Equal(t, "Enteric Fever", c.Labels()[4])
}

func TestExternalLabelCountMismatch(t *testing.T) {
	labelPath := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(labelPath, []byte("OnlyOne\n"), 0o644))

	settings := testSettings()
	settings.Classifier.LabelPath = labelPath

	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryLabelLoad))
}

func TestPoolClassify(t *testing.T) {
	c := newTestClassifier(t)
	pool := NewPool(c, 2, 5*time.Second)

	vector := &features.Vector{Coliform: 120, Diarrhea: 1, Dehydration: 1}
	p, err := pool.Classify(context.Background(), vector)
	require.NoError(t, err)
	assert.Equal(t, "Cholera", p.Label)
}

func TestPoolCancelledContext(t *testing.T) {
	c := newTestClassifier(t)
	pool := NewPool(c, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Exhaust the single slot so the cancelled caller has to wait.
	pool.slots <- struct{}{}
	defer func() { <-pool.slots }()

	_, err := pool.Classify(ctx, &features.Vector{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
