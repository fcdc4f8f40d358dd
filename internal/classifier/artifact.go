// artifact.go defines the trained-model artifact format and its validation.
package classifier

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
)

// Artifact is the serialized form of a trained gradient-boosted classifier.
// It carries its own schema (feature columns, categorical columns), the
// ordered label list acting as the label decoder, per-column categorical
// vocabularies and the decision-tree forest. Training happens offline; this
// process only loads and evaluates the artifact.
type Artifact struct {
	SchemaVersion      int                 `json:"schema_version"`
	Model              string              `json:"model"`
	FeatureColumns     []string            `json:"feature_columns"`
	CategoricalColumns []string            `json:"categorical_columns"`
	Categories         map[string][]string `json:"categories"`
	Labels             []string            `json:"labels"`
	BaseScores         []float64           `json:"base_scores"`
	Trees              []Tree              `json:"trees"`
}

// Tree is one boosted decision tree contributing to one class score.
type Tree struct {
	Class int        `json:"class"`
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is either an internal split (Leaf nil) or a leaf contribution.
// Splits send x[Feature] <= Threshold left, otherwise right.
type TreeNode struct {
	Feature   int      `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Left      int      `json:"left,omitempty"`
	Right     int      `json:"right,omitempty"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

// ParseArtifact decodes and validates a model artifact. The schema check
// against the canonical feature column order is strict: a drifted artifact
// would silently corrupt every prediction, so load refuses instead.
func ParseArtifact(data []byte) (*Artifact, error) {
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, errors.New(fmt.Errorf("parsing model artifact: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Build()
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (a *Artifact) validate() error {
	if !slices.Equal(a.FeatureColumns, features.Columns) {
		return modelSchemaError(fmt.Sprintf(
			"artifact feature columns do not match the canonical schema: got %d columns [%s]",
			len(a.FeatureColumns), strings.Join(a.FeatureColumns, ", ")))
	}
	if !slices.Equal(a.CategoricalColumns, features.CategoricalColumns) {
		return modelSchemaError(fmt.Sprintf(
			"artifact categorical columns do not match: [%s]",
			strings.Join(a.CategoricalColumns, ", ")))
	}
	if len(a.Labels) == 0 {
		return errors.Newf("artifact label list is empty").
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Priority(errors.PriorityCritical).
			Build()
	}
	if len(a.BaseScores) != 0 && len(a.BaseScores) != len(a.Labels) {
		return modelSchemaError(fmt.Sprintf(
			"base score count %d does not match label count %d",
			len(a.BaseScores), len(a.Labels)))
	}
	for i := range a.Trees {
		if err := a.validateTree(i); err != nil {
			return err
		}
	}
	return nil
}

func (a *Artifact) validateTree(index int) error {
	tree := &a.Trees[index]
	if tree.Class < 0 || tree.Class >= len(a.Labels) {
		return modelSchemaError(fmt.Sprintf("tree %d targets unknown class %d", index, tree.Class))
	}
	if len(tree.Nodes) == 0 {
		return modelSchemaError(fmt.Sprintf("tree %d has no nodes", index))
	}
	for n := range tree.Nodes {
		node := &tree.Nodes[n]
		if node.Leaf != nil {
			continue
		}
		if node.Feature < 0 || node.Feature >= len(a.FeatureColumns) {
			return modelSchemaError(fmt.Sprintf(
				"tree %d node %d splits on unknown feature %d", index, n, node.Feature))
		}
		if node.Left < 0 || node.Left >= len(tree.Nodes) ||
			node.Right < 0 || node.Right >= len(tree.Nodes) {
			return modelSchemaError(fmt.Sprintf(
				"tree %d node %d references out-of-range children", index, n))
		}
	}
	return a.validateTreeAcyclic(index)
}

// validateTreeAcyclic rejects trees whose child links form a cycle, which
// would make evaluate loop forever. Standard three-color walk over the
// split-node graph.
func (a *Artifact) validateTreeAcyclic(index int) error {
	tree := &a.Trees[index]

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int8, len(tree.Nodes))

	var walk func(n int) error
	walk = func(n int) error {
		switch state[n] {
		case visiting:
			return modelSchemaError(fmt.Sprintf(
				"tree %d node %d is part of a cycle", index, n))
		case done:
			return nil
		}
		state[n] = visiting
		if node := &tree.Nodes[n]; node.Leaf == nil {
			if err := walk(node.Left); err != nil {
				return err
			}
			if err := walk(node.Right); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}

	for n := range tree.Nodes {
		if state[n] == unvisited {
			if err := walk(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// encode turns a feature vector into the numeric row the forest evaluates.
// Categorical values map to their index in the column's vocabulary, matched
// case-insensitively; unknown values encode as -1.
func (a *Artifact) encode(vector *features.Vector) []float64 {
	row := make([]float64, 0, len(features.Columns))
	for i, value := range vector.Categorical() {
		row = append(row, a.encodeCategory(a.CategoricalColumns[i], value))
	}
	row = append(row, vector.Numeric()...)
	return row
}

func (a *Artifact) encodeCategory(column, value string) float64 {
	vocabulary := a.Categories[column]
	for i, known := range vocabulary {
		if strings.EqualFold(known, value) {
			return float64(i)
		}
	}
	return -1
}

// score evaluates the forest over an encoded row and returns per-class scores.
func (a *Artifact) score(row []float64) []float64 {
	scores := make([]float64, len(a.Labels))
	copy(scores, a.BaseScores)
	for i := range a.Trees {
		tree := &a.Trees[i]
		scores[tree.Class] += tree.evaluate(row)
	}
	return scores
}

// evaluate walks the tree from the root to a leaf.
func (t *Tree) evaluate(row []float64) float64 {
	node := &t.Nodes[0]
	for node.Leaf == nil {
		if row[node.Feature] <= node.Threshold {
			node = &t.Nodes[node.Left]
		} else {
			node = &t.Nodes[node.Right]
		}
	}
	return *node.Leaf
}

func modelSchemaError(message string) error {
	return errors.Newf("%s", message).
		Component("classifier").
		Category(errors.CategoryModelLoad).
		Priority(errors.PriorityCritical).
		Build()
}
