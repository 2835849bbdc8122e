package engine

import "github.com/molmute/molmute/pkg/schema"

// Config holds engine-level settings.
type Config struct {
	// Variant selects the analysis schema the backend is asked to follow.
	// The extended variant adds IUPAC names and structure guesses, and
	// enables the structure validation step when a validator is wired in.
	Variant schema.Variant

	// Model is recorded on responses for provenance. The generation client
	// carries its own model setting; this one is informational.
	Model string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Variant: schema.VariantBasic,
	}
}
