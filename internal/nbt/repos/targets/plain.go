package targets

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/rr-nbt/internal/nbt/common/log"
)

// ParsePlainList reads target expressions from a newline-delimited list.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - A line may hold several targets separated by spaces, tabs or commas
// - Skips empty lines after trimming/stripping comments
// - De-duplicates targets while preserving first-seen order
//
// Entries are returned as written; Expand validates them.
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	var out []string
	logger.Debug(map[string]any{"source": source}, "parse_target_list_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			continue
		}

		for _, f := range fields {
			if _, ok := seen[f]; ok {
				logger.Debug(map[string]any{"line": lineNum, "target": f}, "skip_duplicate")
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_target_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_target_list_done")
	return out, nil
}
