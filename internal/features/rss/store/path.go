package store

import (
	"reflect"
	"strconv"
	"strings"

	"feedwatch/internal/core"
)

// resolve walks root along a dot-separated path. Struct fields are matched by
// their JSON names, slices by position and string-keyed maps by key.
func resolve(root any, path string) (any, error) {
	if path == "" {
		return root, nil
	}

	v := reflect.ValueOf(root)
	for _, segment := range strings.Split(path, ".") {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, core.NewInvalidPathError(path)
			}
			v = v.Elem()
		}

		next, ok := step(v, segment)
		if !ok {
			return nil, core.NewInvalidPathError(path)
		}
		v = next
	}

	return v.Interface(), nil
}

func step(v reflect.Value, segment string) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Struct:
		return fieldByJSONName(v, segment)
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(i), true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		elem := v.MapIndex(reflect.ValueOf(segment).Convert(v.Type().Key()))
		return elem, elem.IsValid()
	default:
		return reflect.Value{}, false
	}
}

func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagName, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch tagName {
		case "-":
			continue
		case "":
			tagName = field.Name
		}

		if tagName == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
