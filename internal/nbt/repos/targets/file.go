package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	logpkg "github.com/haukened/rr-nbt/internal/nbt/common/log"
)

// targetsKey is the list read from structured target files.
const targetsKey = "targets"

// LoadFile reads target expressions from path. YAML, JSON and TOML files must
// carry a "targets" list (or a single string); any other extension is read
// as a plain list.
func LoadFile(path string, logger logpkg.Logger) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return loadPlainFile(path, logger)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load target file %s: %w", path, err)
	}
	if !k.Exists(targetsKey) {
		return nil, fmt.Errorf("target file %s missing '%s'", path, targetsKey)
	}

	exprs := toStringValues(k.Get(targetsKey))
	logger.Debug(map[string]any{"source": path, "count": len(exprs)}, "Loaded target file")
	return exprs, nil
}

func loadPlainFile(path string, logger logpkg.Logger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target file %s: %w", path, err)
	}
	defer f.Close()
	return ParsePlainList(f, path, logger)
}

// toStringValues converts a koanf value (string or []any) into trimmed,
// non-empty strings. Other element types are skipped.
func toStringValues(val any) []string {
	switch v := val.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return toStringValues(stringsToAny(v))
	}
	return nil
}

func stringsToAny(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
