// Package classifier wraps the pre-trained disease prediction model. The
// model artifact is produced offline; this package loads it at startup,
// refuses to start on any schema mismatch and serves deterministic,
// synchronous predictions over the canonical feature vector.
package classifier

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
	"github.com/aquasentinel/aquasentinel/internal/logging"
)

// Prediction is one classification outcome: the decoded disease label plus
// the exact vector the model consumed, echoed back for persistence.
type Prediction struct {
	Label    string
	Features features.Vector
}

// Classifier evaluates the loaded model artifact. Construction fails when
// the artifact or label decoder cannot be loaded; a process without a model
// must refuse fusion requests rather than silently skip classification.
type Classifier struct {
	Settings *conf.Settings
	artifact *Artifact
	mu       sync.Mutex
}

// New loads the model artifact named in settings, or the embedded default
// when no path is configured, and validates it against the canonical schema.
func New(settings *conf.Settings) (*Classifier, error) {
	data, origin, err := loadArtifactData(settings)
	if err != nil {
		return nil, err
	}

	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, err
	}

	if settings.Classifier.LabelPath != "" {
		labels, err := loadExternalLabels(settings.Classifier.LabelPath)
		if err != nil {
			return nil, err
		}
		if len(labels) != len(artifact.Labels) {
			return nil, errors.Newf(
				"label file has %d labels, model artifact expects %d",
				len(labels), len(artifact.Labels)).
				Component("classifier").
				Category(errors.CategoryLabelLoad).
				Priority(errors.PriorityCritical).
				Context("label_path", settings.Classifier.LabelPath).
				Build()
		}
		artifact.Labels = labels
	}

	logging.ForService("classifier").Info("model loaded",
		"origin", origin,
		"model", artifact.Model,
		"labels", len(artifact.Labels),
		"trees", len(artifact.Trees))

	return &Classifier{Settings: settings, artifact: artifact}, nil
}

// loadArtifactData reads the configured external artifact or falls back to
// the embedded default model.
func loadArtifactData(settings *conf.Settings) (data []byte, origin string, err error) {
	modelPath := settings.Classifier.ModelPath
	if modelPath == "" {
		return defaultModelData, "embedded", nil
	}

	data, err = os.ReadFile(modelPath)
	if err != nil {
		return nil, "", errors.New(fmt.Errorf("reading model artifact: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelInit).
			Priority(errors.PriorityCritical).
			ModelContext(modelPath, "").
			Build()
	}
	return data, modelPath, nil
}

// Labels returns the ordered label list the model decodes into.
func (c *Classifier) Labels() []string {
	labels := make([]string, len(c.artifact.Labels))
	copy(labels, c.artifact.Labels)
	return labels
}

// Predict classifies one feature vector. Deterministic for identical vectors
// and an unchanged artifact; ties between equal class scores resolve to the
// lower label index. CPU-bound, so callers dispatch through the worker pool
// rather than invoking it on a request-serving goroutine.
func (c *Classifier) Predict(vector *features.Vector) (Prediction, error) {
	if vector == nil {
		return Prediction{}, errors.Newf("nil feature vector").
			Component("classifier").
			Category(errors.CategoryValidation).
			Build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	row := c.artifact.encode(vector)
	scores := c.artifact.score(row)

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	if c.Settings.Debug {
		logging.ForService("classifier").Debug("prediction",
			"label", c.artifact.Labels[best],
			"elapsed", time.Since(start))
	}

	return Prediction{Label: c.artifact.Labels[best], Features: *vector}, nil
}
