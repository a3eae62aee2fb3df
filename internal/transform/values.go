package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const dateLayout = "2006-01-02"

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	dateLayout,
}

var moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

// getMap returns m[key] when it is an object, otherwise nil
func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

// getString returns m[key] as text. Scalars are formatted, everything else
// (including a missing key) is "".
func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return stringify(m[key])
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// getFloat returns m[key] as a number, 0 when missing or not numeric
func getFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	f, ok := toFloat(m[key])
	if !ok {
		return 0
	}
	return f
}

// getInt returns m[key] truncated to an int, 0 when missing or not numeric
func getInt(m map[string]any, key string) int {
	return int(getFloat(m, key))
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isBlank mirrors a falsy check: nil, "", 0 and false are all blank
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case bool:
		return !val
	default:
		return false
	}
}

// ParseAmount strips currency symbols, commas and spaces and parses the rest
// as a number. Blank or unparseable input yields nil.
func ParseAmount(v any) *float64 {
	if isBlank(v) {
		return nil
	}
	if _, isStr := v.(string); !isStr {
		if f, ok := toFloat(v); ok {
			return &f
		}
		return nil
	}
	f, ok := toFloat(moneyReplacer.Replace(v.(string)))
	if !ok {
		return nil
	}
	return &f
}

// ParseRevenue is ParseAmount truncated toward zero to a whole number.
// float64(MaxInt64) rounds up to 2^63, hence the >= bound.
func ParseRevenue(v any) *int64 {
	f := ParseAmount(v)
	if f == nil || *f >= math.MaxInt64 || *f < math.MinInt64 {
		return nil
	}
	n := int64(*f)
	return &n
}

// ParseDate parses YYYY-MM-DD, returning nil on any failure
func ParseDate(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

// ParseDatetime parses an ISO-8601 timestamp, accepting a trailing Z.
// Timestamps without an offset are taken as UTC.
func ParseDatetime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// OpportunityAge returns whole days between created (YYYY-MM-DD) and now,
// rounded down, or nil when created is missing or unparseable.
func OpportunityAge(created any, now time.Time) *int {
	t := ParseDate(created)
	if t == nil {
		return nil
	}
	days := int(math.Floor(now.Sub(*t).Hours() / 24))
	return &days
}

// joinList joins the elements of a list value with sep. A string value is
// returned unchanged.
func joinList(v any, sep string) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, sep)
	default:
		return ""
	}
}
