// labels.go loads an external label decoder file overriding artifact labels.
package classifier

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/aquasentinel/aquasentinel/internal/errors"
)

// loadExternalLabels reads one label per line, ignoring blanks and comments.
// The file overrides the artifact's embedded decoder, mirroring retrained
// models shipped with a separate encoder file.
func loadExternalLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("opening label file: %w", err)).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Priority(errors.PriorityCritical).
			Context("label_path", path).
			Build()
	}
	defer func() {
		_ = file.Close()
	}()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(fmt.Errorf("reading label file: %w", err)).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Context("label_path", path).
			Build()
	}
	if len(labels) == 0 {
		return nil, errors.Newf("label file %s contains no labels", path).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Priority(errors.PriorityCritical).
			Build()
	}
	return labels, nil
}
