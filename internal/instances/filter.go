package instances

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusFilter restricts a view to one ConnectionStatus, or to none with StatusAll.
type StatusFilter string

const StatusAll StatusFilter = "ALL"

// ParseStatusFilter accepts "", "all" (any case) or a ConnectionStatus.
func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" || strings.EqualFold(s, string(StatusAll)) {
		return StatusAll, nil
	}
	status, err := ParseConnectionStatus(s)
	if err != nil {
		return "", fmt.Errorf("invalid status filter: %w", err)
	}
	return StatusFilter(status), nil
}

// Filter is the search term and status restriction applied to a list.
type Filter struct {
	SearchTerm string
	Status     StatusFilter
}

func (f Filter) matches(inst Instance, term string) bool {
	if term != "" {
		if !strings.Contains(strings.ToLower(inst.Name), term) &&
			!strings.Contains(strconv.FormatInt(inst.ID, 10), term) {
			return false
		}
	}
	if f.Status != "" && f.Status != StatusAll && inst.ConnectionStatus != ConnectionStatus(f.Status) {
		return false
	}
	return true
}

// Apply returns the elements of items matching f, in their original order.
// items is not modified.
func Apply(items []Instance, f Filter) []Instance {
	term := strings.ToLower(f.SearchTerm)
	result := make([]Instance, 0, len(items))
	for _, inst := range items {
		if f.matches(inst, term) {
			result = append(result, inst)
		}
	}
	return result
}
