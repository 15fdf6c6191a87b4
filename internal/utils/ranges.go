// internal/utils/ranges.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDs expands a list such as "2,3-10,14" into IDs, keeping order and
// dropping duplicates.
func ParseIDs(s string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]struct{})
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		if !isRange {
			add(start)
			continue
		}
		end, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", part, err)
		}
		if end < start {
			return nil, fmt.Errorf("invalid range %q: end before start", part)
		}
		for id := start; id <= end; id++ {
			add(id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids in %q", s)
	}
	return ids, nil
}
