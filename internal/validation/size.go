// Package validation holds the request and response checks run around the
// recommendation pipeline.
package validation

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
)

// MaxResponseBytes is the response ceiling, 1 MiB.
const MaxResponseBytes = 1024 * 1024

// SizeGuard rejects encoded payloads above Max bytes.
type SizeGuard struct {
	Max int
}

// NewSizeGuard returns a guard at MaxResponseBytes.
func NewSizeGuard() SizeGuard {
	return SizeGuard{Max: MaxResponseBytes}
}

// Check encodes payload as JSON and returns the bytes to write. A payload
// of exactly Max bytes passes; anything larger fails with a
// *errors.SizeLimitError.
func (g SizeGuard) Check(payload interface{}) ([]byte, error) {
	limit := g.Max
	if limit <= 0 {
		limit = MaxResponseBytes
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	if len(data) > limit {
		return nil, &apperrors.SizeLimitError{Actual: len(data), Max: limit}
	}
	return data, nil
}
