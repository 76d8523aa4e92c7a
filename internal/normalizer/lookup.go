package normalizer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns a trimmed string at path, or "" when absent. Objects carrying a
// name/title (e.g. {"id":3,"name":"Emaar"}) resolve to that name.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, k := range []string{"name", "title", "url"} {
			if s, ok := v[k].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// firstStr: first non-empty string among paths.
func firstStr(m map[string]any, paths ...string) *string {
	for _, p := range paths {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// firstFloat: number from several paths (float64/int/string like "1,250,000" or "8,5").
func firstFloat(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		if f := toFloat(lookupAny(m, k)); f != nil {
			return f
		}
	}
	return nil
}

func toFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		// thousands separators vs decimal comma
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") && len(s)-strings.Index(s, ",") <= 3 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// firstInt64: int64 from several paths (float64/int/string).
func firstInt64(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstBool accepts true/false, 0/1 and "yes"/"true" style strings.
func firstBool(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			if v {
				return true
			}
		case float64:
			if v != 0 {
				return true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes", "y":
				return true
			}
		}
	}
	return false
}

// toBedrooms reads a bedroom count: numbers, "2", "2 BR", "Studio".
func toBedrooms(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case int:
		n := t
		return &n
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		if strings.Contains(s, "studio") {
			n := 0
			return &n
		}
		end := 0
		for end < len(s) && unicode.IsDigit(rune(s[end])) {
			end++
		}
		if end == 0 {
			return nil
		}
		if n, err := strconv.Atoi(s[:end]); err == nil {
			return &n
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {url/src/name}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					for _, key := range []string{"url", "src", "image", "name", "title"} {
						if u, ok := t[key].(string); ok && u != "" {
							out = append(out, u)
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// firstObjects returns the first list of objects found among paths.
func firstObjects(m map[string]any, paths ...string) []map[string]any {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok || len(raw) == 0 {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if obj, ok := it.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstRaw(m map[string]any, paths ...string) []byte {
	for _, k := range paths {
		if v := lookupAny(m, k); v != nil {
			return marshal(v, k)
		}
	}
	return nil
}

func marshal(v any, context string) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("context", context).Msg("marshal payload failed")
		return nil
	}
	return b
}
