package payhip

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/super-videotheque/backend/internal/models"
)

// DefaultGrantSeconds is the catalog access granted when a product names no hour count,
// and for products that carry no recognised marker at all.
const DefaultGrantSeconds int64 = 3600

var (
	hoursPattern = regexp.MustCompile(`(\d+)H`)
	// Tokens end at the next space, underscore or hyphen, so ids containing
	// those characters are truncated. Product names must avoid them.
	filmPattern     = regexp.MustCompile(`(?i)FILM_([^ _-]*)`)
	categoryPattern = regexp.MustCompile(`(?i)CAT_([^ _-]*)`)
)

// ClassifyProduct derives the access grant from a product name or identifier.
//
// Markers are matched case-insensitively in priority order: TIME_/1H/HOUR (catalog for
// N hours, N taken from an "<N>H" pattern), FILM_<id> (one title), CAT_<slug> (one
// category). Anything else falls back to one hour of catalog access.
func ClassifyProduct(product string) models.AccessGrant {
	upper := strings.ToUpper(product)

	if strings.Contains(upper, "TIME_") || strings.Contains(upper, "1H") || strings.Contains(upper, "HOUR") {
		return timeGrant(hoursFrom(upper))
	}
	if m := filmPattern.FindStringSubmatch(product); m != nil && m[1] != "" {
		return models.AccessGrant{Scope: models.AccessScopeFilm, Target: m[1]}
	}
	if m := categoryPattern.FindStringSubmatch(product); m != nil && m[1] != "" {
		return models.AccessGrant{Scope: models.AccessScopeCategory, Target: strings.ToLower(m[1])}
	}
	return timeGrant(DefaultGrantSeconds)
}

func hoursFrom(upper string) int64 {
	m := hoursPattern.FindStringSubmatch(upper)
	if m == nil {
		return DefaultGrantSeconds
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/3600 {
		return DefaultGrantSeconds
	}
	return n * 3600
}

func timeGrant(seconds int64) models.AccessGrant {
	return models.AccessGrant{
		Scope:           models.AccessScopeTime,
		Target:          models.AccessTargetAll,
		DurationSeconds: &seconds,
	}
}
