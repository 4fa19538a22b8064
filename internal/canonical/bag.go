// Package canonical turns loosely typed record-store rows into canonical domain entities.
//
// Every Normalize function is total: any input bag yields a valid entity whose enum fields
// are inside their closed sets. Problems found along the way are reported as Issues on the
// Result rather than as errors, so read paths keep working on degraded data.
package canonical

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Bag is an arbitrary attribute bag as decoded from the record store.
type Bag map[string]any

// corruptedMarker matches placeholders the store emits when it serializes an array
// reference instead of its contents.
var corruptedMarker = regexp.MustCompile(`^(\[Ljava\.lang\.Object;@[0-9a-fA-F]+|\[object Object\])$`)

// IsCorruptedMarker reports whether s is a known corrupted-serialization placeholder.
func IsCorruptedMarker(s string) bool {
	return corruptedMarker.MatchString(strings.TrimSpace(s))
}

// lookup returns the first alias whose value is present and non-empty.
func (b Bag) lookup(aliases ...string) (any, bool) {
	if b == nil {
		return nil, false
	}
	for _, alias := range aliases {
		val, ok := b[alias]
		if !ok || isEmpty(val) {
			continue
		}
		return val, true
	}
	return nil, false
}

func (b Bag) text(aliases ...string) string {
	val, ok := b.lookup(aliases...)
	if !ok {
		return ""
	}
	return toText(val)
}

// nested returns a sub-bag stored under one of the aliases.
func (b Bag) nested(aliases ...string) Bag {
	val, ok := b.lookup(aliases...)
	if !ok {
		return nil
	}
	switch typed := val.(type) {
	case map[string]any:
		return Bag(typed)
	case Bag:
		return typed
	default:
		return nil
	}
}

func isEmpty(val any) bool {
	switch typed := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case []string:
		return len(typed) == 0
	default:
		return false
	}
}

func toText(val any) string {
	switch typed := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return ""
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return toText(float64(typed))
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		if typed.IsZero() {
			return ""
		}
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// foldEnum lower-cases, trims and folds separators so "In Progress" and "in_progress"
// both become "in-progress".
func foldEnum(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

func toNumber(val any) (float64, bool) {
	switch typed := val.(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return typed, true
	case float32:
		return toNumber(float64(typed))
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return toNumber(f)
	default:
		return 0, false
	}
}

var truthy = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true, "active": true, "enabled": true,
	"false": false, "no": false, "n": false, "0": false, "inactive": false, "disabled": false,
	"suspended": false, "deactivated": false,
}

func toBool(val any) (bool, bool) {
	switch typed := val.(type) {
	case bool:
		return typed, true
	case float64:
		if typed == 1 {
			return true, true
		}
		if typed == 0 {
			return false, true
		}
		return false, false
	default:
		parsed, ok := truthy[strings.ToLower(toText(val))]
		return parsed, ok
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// maxEpochMillis is 9999-12-31T23:59:59.999Z, the last instant RFC 3339 can carry.
const maxEpochMillis = 253402300799999

// toTime parses a timestamp; JSON numbers are epoch milliseconds.
func toTime(val any) (time.Time, bool) {
	switch typed := val.(type) {
	case time.Time:
		if year := typed.UTC().Year(); year < 0 || year > 9999 {
			return time.Time{}, false
		}
		return typed.UTC(), true
	case float64, float32, int, int64, json.Number:
		ms, ok := toNumber(typed)
		if !ok || !(ms >= 0 && ms <= maxEpochMillis) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	raw := toText(val)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// toList accepts either a delimited string or a JSON array.
func toList(val any, separators string) []string {
	var parts []string
	switch typed := val.(type) {
	case []any:
		for _, item := range typed {
			parts = append(parts, toText(item))
		}
	case []string:
		parts = append(parts, typed...)
	default:
		parts = strings.FieldsFunc(toText(val), func(r rune) bool {
			return strings.ContainsRune(separators, r)
		})
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
