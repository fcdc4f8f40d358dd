package classifier

import (
	_ "embed" // Embedding the default model artifact into the binary.
)

// Embedded default model artifact for a monolithic build. An external
// artifact configured via classifier.modelpath takes precedence.
//
//go:embed data/default_model.json
var defaultModelData []byte
