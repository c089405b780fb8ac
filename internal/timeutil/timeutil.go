package timeutil

import (
	"fmt"
	"regexp"
	"time"

	"github.com/me/godag/pkg/model"
)

// offsetRE matches an explicit zone designator at the end of an RFC 3339
// timestamp: "Z" or a numeric offset like "+02:00".
var offsetRE = regexp.MustCompile(`(?:Z|[+-]\d{2}:\d{2})$`)

// ParseAware parses an RFC 3339 timestamp that carries an explicit zone
// designator and returns it normalized to UTC. A timestamp without an offset
// is naive and yields model.ErrNaiveTimestamp; comparing naive instants
// against aware ones upstream could mask real scheduling bugs, so the
// ingestion boundary refuses them outright.
func ParseAware(s string) (time.Time, error) {
	if !offsetRE.MatchString(s) {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, model.ErrNaiveTimestamp)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Format renders an instant in the stable user-facing form used in
// dependency reasons and API payloads: RFC 3339, UTC.
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
