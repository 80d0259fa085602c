package registry

import (
	"strconv"
	"strings"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// Filter restricts the visible table by substring match on one field.
type Filter struct {
	Mode  domain.FilterMode
	Query string
}

// Matches reports whether r passes the filter. Name and user match
// case-insensitively; pid and ppid match as substrings of the decimal
// representation. An empty query matches everything.
func (f Filter) Matches(r domain.ProcessRecord) bool {
	if f.Query == "" {
		return true
	}
	switch f.Mode {
	case domain.FilterPID:
		return strings.Contains(strconv.FormatInt(int64(r.PID), 10), f.Query)
	case domain.FilterPPID:
		return strings.Contains(strconv.FormatInt(int64(r.ParentPID), 10), f.Query)
	case domain.FilterUser:
		return containsFold(r.User, f.Query)
	default:
		return containsFold(r.Name, f.Query)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
