package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigitPattern   = regexp.MustCompile(`\D`)
	numericKeyPattern = regexp.MustCompile(`(?i)(amount|price|qty|quantity|subtotal|total|tax)`)
)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone reduces a phone number to its digits.
func NormalizePhone(s string) string {
	return nonDigitPattern.ReplaceAllString(s, "")
}

// transformValue normalizes well-known fields by name: anything containing
// "Email" is lowercased, anything containing "Phone" becomes digits-only.
// Recurses into nested structs, pointers and slices.
func transformValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return false
		}
		return transformValue(v.Elem())
	case reflect.Slice, reflect.Array:
		changed := false
		for i := 0; i < v.Len(); i++ {
			changed = transformValue(v.Index(i)) || changed
		}
		return changed
	case reflect.Struct:
		changed := false
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := v.Field(i)
			if !f.CanSet() {
				continue
			}
			if f.Kind() == reflect.String {
				name := t.Field(i).Name
				switch {
				case strings.Contains(name, "Email"):
					if n := NormalizeEmail(f.String()); n != f.String() {
						f.SetString(n)
						changed = true
					}
				case strings.Contains(name, "Phone"):
					if n := NormalizePhone(f.String()); n != f.String() {
						f.SetString(n)
						changed = true
					}
				}
				continue
			}
			changed = transformValue(f) || changed
		}
		return changed
	}
	return false
}

// CoerceNumericStrings converts numeric-looking string values into numbers
// for keys whose name implies money or quantity, recursing into nested
// records and lists. Raw records arriving from loosely-typed sources often
// carry "12.50" where 12.50 is meant.
func CoerceNumericStrings(rec map[string]any) bool {
	changed := false
	for k, v := range rec {
		switch tv := v.(type) {
		case string:
			if !numericKeyPattern.MatchString(k) {
				continue
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64); err == nil {
				rec[k] = f
				changed = true
			}
		case map[string]any:
			changed = CoerceNumericStrings(tv) || changed
		case []any:
			for _, el := range tv {
				if m, ok := el.(map[string]any); ok {
					changed = CoerceNumericStrings(m) || changed
				}
			}
		}
	}
	return changed
}
