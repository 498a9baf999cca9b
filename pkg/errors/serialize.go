// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// maxDepth bounds recursion on self-referencing values.
const maxDepth = 32

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Envelope classifies err and returns the payload a caller may see: the
// serialized domain error, or {"_tag":"InternalError"} for internal failures.
func Envelope(err error) (Classification, map[string]any) {
	c := Classify(err)
	if c.Internal {
		return c, map[string]any{"_tag": TagInternal}
	}
	var tagged Tagged
	errors.As(err, &tagged)
	return c, Serialize(tagged)
}

// Serialize renders a tagged failure as a JSON-ready map: "_tag" plus the
// error's exported fields. Fields named cause are dropped at every depth,
// text-marshalable values (instants, uuids) become their canonical string,
// and untagged errors, funcs and channels are omitted.
func Serialize(err Tagged) map[string]any {
	return serializeTagged(err, 1)
}

// serializeTagged carries depth through nested tagged values so a cycle
// between errors is cut at maxDepth like any other value.
func serializeTagged(err Tagged, depth int) map[string]any {
	if err == nil {
		return map[string]any{"_tag": TagInternal}
	}
	out := map[string]any{}
	v := reflect.ValueOf(err)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			break
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct && depth <= maxDepth {
		out = serializeStruct(v, depth)
	}
	out["_tag"] = err.Tag()
	return out
}

func serializeValue(v reflect.Value, depth int) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}
	if depth > maxDepth {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Tagged:
			return serializeTagged(x, depth+1), true
		case error:
			return nil, false
		case encoding.TextMarshaler:
			if b, err := x.MarshalText(); err == nil {
				return string(b), true
			}
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return serializeValue(v.Elem(), depth+1)
	case reflect.Struct:
		return serializeStruct(v, depth+1), true
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, ok := serializeValue(v.Index(i), depth+1)
			if !ok {
				item = nil
			}
			out = append(out, item)
		}
		return out, true
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := mapKey(iter.Key())
			if isCauseName(key) {
				continue
			}
			item, ok := serializeValue(iter.Value(), depth+1)
			if !ok {
				continue
			}
			out[key] = item
		}
		return out, true
	default:
		if v.CanInterface() {
			return v.Interface(), true
		}
		return nil, false
	}
}

func serializeStruct(v reflect.Value, depth int) map[string]any {
	out := map[string]any{}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonField(f)
		if skip || isCauseName(f.Name) || isCauseName(name) {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" && !f.Type.Implements(errorType) {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				for k, val := range serializeStruct(inner, depth+1) {
					if _, exists := out[k]; !exists {
						out[k] = val
					}
				}
				continue
			}
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		val, ok := serializeValue(fv, depth)
		if !ok {
			continue
		}
		out[name] = val
	}
	return out
}

func jsonField(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func isCauseName(name string) bool {
	return strings.EqualFold(name, "cause")
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if b, err := tm.MarshalText(); err == nil {
				return string(b)
			}
		}
		return fmt.Sprint(k.Interface())
	}
	return ""
}
