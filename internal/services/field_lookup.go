package services

import (
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// fieldPopulated resolves a dotted path of JSON field names against v and
// reports whether the value there is non-empty. Blank strings, nil pointers,
// zero times and empty collections are empty; numbers and booleans never are.
// Paths that do not resolve count as empty.
func fieldPopulated(v any, path string) bool {
	cur := reflect.ValueOf(v)
	for _, part := range strings.Split(path, ".") {
		for cur.Kind() == reflect.Pointer || cur.Kind() == reflect.Interface {
			if cur.IsNil() {
				return false
			}
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return false
		}
		next, ok := fieldByJSONName(cur, part)
		if !ok {
			return false
		}
		cur = next
	}
	return populated(cur)
}

func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = sf.Name
		}
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func populated(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return false
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return false
		}
		return populated(v.Elem())
	case reflect.String:
		return strings.TrimSpace(v.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() > 0
	case reflect.Struct:
		if v.Type() == timeType {
			return !v.Interface().(time.Time).IsZero()
		}
		return true
	default:
		return true
	}
}
