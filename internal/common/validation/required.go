package validation

import (
	"reflect"
	"strings"
)

// IsFalsy reports whether a parameter value counts as absent: nil, blank
// strings, numeric zero, false and empty collections.
func IsFalsy(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// MissingFields returns the keys of params that are absent or falsy, in the
// order they were asked for.
func MissingFields(params map[string]interface{}, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if IsFalsy(params[k]) {
			missing = append(missing, k)
		}
	}
	return missing
}

// FirstPresent returns the first key whose value is not falsy.
func FirstPresent(params map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if !IsFalsy(params[k]) {
			return k, true
		}
	}
	return "", false
}
