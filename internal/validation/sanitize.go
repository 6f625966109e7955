package validation

import (
	"reflect"
	"regexp"
	"strings"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	jsSchemePattern  = regexp.MustCompile(`(?i)javascript\s*:`)
	eventAttrPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// SanitizeString strips script tags and obvious injection patterns and trims
// surrounding whitespace. The second return value reports whether the input
// was altered.
func SanitizeString(s string) (string, bool) {
	out := scriptTagPattern.ReplaceAllString(s, "")
	out = jsSchemePattern.ReplaceAllString(out, "")
	out = eventAttrPattern.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	return out, out != s
}

// sanitizeValue walks v recursively and sanitizes every settable string it
// reaches, including strings nested in structs, slices and maps.
func sanitizeValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		if !v.CanSet() {
			return false
		}
		s, changed := SanitizeString(v.String())
		if changed {
			v.SetString(s)
		}
		return changed
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return false
		}
		return sanitizeValue(v.Elem())
	case reflect.Struct:
		changed := false
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if f.CanSet() {
				changed = sanitizeValue(f) || changed
			}
		}
		return changed
	case reflect.Slice, reflect.Array:
		changed := false
		for i := 0; i < v.Len(); i++ {
			changed = sanitizeValue(v.Index(i)) || changed
		}
		return changed
	case reflect.Map:
		changed := false
		for _, k := range v.MapKeys() {
			mv := v.MapIndex(k)
			if s, c := sanitizeMapValue(mv); c {
				v.SetMapIndex(k, s)
				changed = true
			}
		}
		return changed
	}
	return false
}

// sanitizeMapValue handles map entries, which are not addressable and must be
// replaced through SetMapIndex.
func sanitizeMapValue(v reflect.Value) (reflect.Value, bool) {
	iv := v
	if iv.Kind() == reflect.Interface && !iv.IsNil() {
		iv = iv.Elem()
	}
	if iv.Kind() == reflect.String {
		s, changed := SanitizeString(iv.String())
		if changed {
			return reflect.ValueOf(s), true
		}
	}
	return v, false
}

// sanitizeRecord sanitizes a raw JSON-like record in place.
func sanitizeRecord(rec map[string]any) bool {
	changed := false
	for k, v := range rec {
		switch tv := v.(type) {
		case string:
			if s, c := SanitizeString(tv); c {
				rec[k] = s
				changed = true
			}
		case map[string]any:
			changed = sanitizeRecord(tv) || changed
		case []any:
			changed = sanitizeList(tv) || changed
		}
	}
	return changed
}

func sanitizeList(list []any) bool {
	changed := false
	for i, v := range list {
		switch tv := v.(type) {
		case string:
			if s, c := SanitizeString(tv); c {
				list[i] = s
				changed = true
			}
		case map[string]any:
			changed = sanitizeRecord(tv) || changed
		case []any:
			changed = sanitizeList(tv) || changed
		}
	}
	return changed
}
