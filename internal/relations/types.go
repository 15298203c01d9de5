// Package relations computes pairwise relationships between changed files:
// imports, similar edits, shared functions, test pairing and config
// coupling. Each relationship carries a strength in [0,1].
package relations

// Type is the kind of evidence linking two files
type Type string

const (
	Import         Type = "import"
	SimilarChanges Type = "similar_changes"
	SharedFunction Type = "shared_function"
	TestPair       Type = "test_pair"
	ConfigRelated  Type = "config_related"
)

// FileRelationship links an unordered pair of files, stored with FileA < FileB
type FileRelationship struct {
	FileA    string  `json:"fileA"`
	FileB    string  `json:"fileB"`
	Type     Type    `json:"type"`
	Strength float64 `json:"strength"` // 0-1
	Evidence string  `json:"evidence"`
}

// Involves reports whether path is one end of r
func (r FileRelationship) Involves(path string) bool {
	return r.FileA == path || r.FileB == path
}

// Other returns the end of r that is not path
func (r FileRelationship) Other(path string) string {
	if r.FileA == path {
		return r.FileB
	}
	return r.FileA
}

// Options configures the analyzer
type Options struct {
	// SimilarityThreshold is the minimum cosine similarity for similar_changes (default: 0.3)
	SimilarityThreshold float64

	// Workers bounds pair-evaluation goroutines (default: GOMAXPROCS)
	Workers int

	// Degraded restricts evaluation to path heuristics (test_pair, config_related)
	Degraded bool
}

// Strength constants
const (
	importStrength         = 0.9
	mentionBase            = 0.55
	mentionStep            = 0.1
	mentionCap             = 0.8
	sharedBase             = 0.5
	sharedStep             = 0.15
	sharedCap              = 0.85
	testPairSameDir        = 0.95
	testPairExact          = 0.9
	testPairPrefix         = 0.6
	configManifestLock     = 0.95
	configSameDir          = 0.6
	configSameFamily       = 0.45
	configSourceSameDir    = 0.3
	defaultSimilarityFloor = 0.3
)

// MaxStrengths folds relationships into the strongest strength per pair
func MaxStrengths(rels []FileRelationship) map[[2]string]float64 {
	out := make(map[[2]string]float64, len(rels))
	for _, r := range rels {
		key := [2]string{r.FileA, r.FileB}
		if r.Strength > out[key] {
			out[key] = r.Strength
		}
	}
	return out
}
