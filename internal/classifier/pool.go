// pool.go dispatches CPU-bound inference to a bounded worker pool so a slow
// prediction never stalls goroutines serving concurrent fusion requests.
package classifier

import (
	"context"
	"runtime"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
)

// Pool bounds concurrent classifier invocations.
type Pool struct {
	classifier *Classifier
	slots      chan struct{}
	timeout    time.Duration
}

// NewPool sizes the pool from settings. Zero workers means one per CPU;
// zero timeout disables the per-prediction deadline.
func NewPool(c *Classifier, workers int, timeout time.Duration) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		classifier: c,
		slots:      make(chan struct{}, workers),
		timeout:    timeout,
	}
}

// Classify acquires a worker slot and runs one prediction. A caller whose
// context expires while waiting or during inference gets a timeout or
// cancellation error and no result; the inference goroutine itself always
// runs to completion so the slot is released cleanly.
func (p *Pool) Classify(ctx context.Context, vector *features.Vector) (Prediction, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return Prediction{}, contextError(ctx, "waiting for classification slot")
	}

	type result struct {
		prediction Prediction
		err        error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { <-p.slots }()
		prediction, err := p.classifier.Predict(vector)
		done <- result{prediction, err}
	}()

	select {
	case r := <-done:
		return r.prediction, r.err
	case <-ctx.Done():
		return Prediction{}, contextError(ctx, "running classification")
	}
}

func contextError(ctx context.Context, operation string) error {
	category := errors.CategoryCancellation
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		category = errors.CategoryTimeout
	}
	return errors.New(ctx.Err()).
		Component("classifier").
		Category(category).
		Context("operation", operation).
		Build()
}
