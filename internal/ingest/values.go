package ingest

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Doc is the untyped shape shared by decoded JSON bodies and BSON documents.
type Doc = map[string]interface{}

func asMap(v interface{}) (Doc, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return map[string]interface{}(m), true
	case primitive.D:
		out := make(Doc, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

// Lookup walks a dotted path ("cliente.nome") through nested documents.
func Lookup(doc Doc, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case primitive.ObjectID:
		return s.Hex()
	default:
		return ""
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "sim", "1":
			return true, true
		case "false", "nao", "não", "0":
			return false, true
		}
	}
	return false, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// FirstString returns the first non-empty string found among the given paths.
func FirstString(doc Doc, paths ...string) string {
	for _, p := range paths {
		if v, ok := Lookup(doc, p); ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func FirstFloat(doc Doc, paths ...string) (float64, bool) {
	for _, p := range paths {
		if v, ok := Lookup(doc, p); ok {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func firstBool(doc Doc, paths ...string) (bool, bool) {
	for _, p := range paths {
		if v, ok := Lookup(doc, p); ok {
			if b, ok := asBool(v); ok {
				return b, true
			}
		}
	}
	return false, false
}

func firstTime(doc Doc, paths ...string) time.Time {
	for _, p := range paths {
		if v, ok := Lookup(doc, p); ok {
			if t, ok := asTime(v); ok {
				return t
			}
		}
	}
	return time.Time{}
}
