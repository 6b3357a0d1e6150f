package postprocessors

import (
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - target_words (int): Sliding-window size in words (default: 150)
//   - min_words (int): Minimum chunk size in words (default: 50)
//   - max_words (int): Maximum chunk size in words (default: 1000)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if n := getIntFromConfig(cfg, "target_words"); n > 0 {
			opts = append(opts, chunker.WithTargetWords(n))
		}
		if n := getIntFromConfig(cfg, "min_words"); n > 0 {
			opts = append(opts, chunker.WithMinWords(n))
		}
		if n := getIntFromConfig(cfg, "max_words"); n > 0 {
			opts = append(opts, chunker.WithMaxWords(n))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
