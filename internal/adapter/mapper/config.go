package mapper

const (
	DefaultJaccardThreshold     = 0.70
	DefaultLevenshteinThreshold = 0.15

	// Offsets of the Levenshtein window around the Jaccard threshold.
	jaccardMinOffset = 0.15
	jaccardMaxOffset = 0.05
)

// Config holds the similarity thresholds of one mapping run. It is not
// range-checked here; config.Config.Validate rejects out-of-range values
// coming from users.
type Config struct {
	JaccardThreshold     float64
	LevenshteinThreshold float64
	// Jaccard scores in [JaccardMin, JaccardMax) get a second chance via
	// normalized Levenshtein similarity.
	JaccardMin float64
	JaccardMax float64
}

func DefaultConfig() Config {
	return Config{
		JaccardThreshold:     DefaultJaccardThreshold,
		LevenshteinThreshold: DefaultLevenshteinThreshold,
		JaccardMin:           0.60,
		JaccardMax:           0.75,
	}
}

// NewConfig derives the Levenshtein window from the Jaccard threshold.
func NewConfig(jaccard, levenshtein float64) Config {
	return Config{
		JaccardThreshold:     jaccard,
		LevenshteinThreshold: levenshtein,
		JaccardMin:           jaccard - jaccardMinOffset,
		JaccardMax:           jaccard + jaccardMaxOffset,
	}
}
