package classify

import (
	"fmt"

	"stagewise/internal/errors"
)

// Weights tunes detector selection.
type Weights struct {
	// HighConfidence is the confidence at which the first detection wins outright
	HighConfidence float64 `json:"highConfidence" toml:"high_confidence" mapstructure:"high_confidence"`

	// Fallback is the minimum confidence for a non-generic detection to beat generic-source
	Fallback float64 `json:"fallback" toml:"fallback" mapstructure:"fallback"`

	// PathOnlyFactor scales the final confidence when only the path was examined
	PathOnlyFactor float64 `json:"pathOnlyFactor" toml:"path_only_factor" mapstructure:"path_only_factor"`
}

// DefaultWeights returns the default selection weights
func DefaultWeights() Weights {
	return Weights{
		HighConfidence: 0.8,
		Fallback:       0.3,
		PathOnlyFactor: 0.6,
	}
}

// Validate checks every weight is within [0,1] and Fallback does not exceed HighConfidence
func (w Weights) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return errors.NewValidationError("weights."+name, fmt.Sprintf("must be within [0,1], got %g", v))
		}
		return nil
	}
	if err := check("highConfidence", w.HighConfidence); err != nil {
		return err
	}
	if err := check("fallback", w.Fallback); err != nil {
		return err
	}
	if err := check("pathOnlyFactor", w.PathOnlyFactor); err != nil {
		return err
	}
	if w.Fallback > w.HighConfidence {
		return errors.NewValidationError("weights.fallback", "must not exceed highConfidence")
	}
	return nil
}
