package collection

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/lazysql/dialect/sql"
)

type segmentKind int

const (
	segmentAny      segmentKind = iota // name or .name
	segmentElement                     // [name]
	segmentProperty                    // ->name
)

type segment struct {
	kind segmentKind
	name string
}

// parsePath splits a path into segments:
//
//	"name"          any segment: a row column, map key, index or field
//	"[name]"        element: a row column, map key or slice index
//	"->name"        property: a struct field
//	"a.b", "a[0]"   nested, "." separates any segments
//	"."             the item itself
func parsePath(p string) ([]segment, error) {
	if p == "." {
		return nil, nil
	}
	if p == "" {
		return nil, fmt.Errorf("collection: empty path")
	}
	var segs []segment
	rest, first := p, true
	for rest != "" {
		var s segment
		switch {
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("collection: unterminated element in path %q", p)
			}
			s, rest = segment{kind: segmentElement, name: rest[1:end]}, rest[end+1:]
		case strings.HasPrefix(rest, "->"):
			s.kind = segmentProperty
			s.name, rest = cutName(rest[2:])
		case rest[0] == '.':
			s.kind = segmentAny
			s.name, rest = cutName(rest[1:])
		case first:
			s.kind = segmentAny
			s.name, rest = cutName(rest)
		default:
			return nil, fmt.Errorf("collection: unexpected %q in path %q", rest, p)
		}
		if s.name == "" {
			return nil, fmt.Errorf("collection: empty segment in path %q", p)
		}
		segs = append(segs, s)
		first = false
	}
	return segs, nil
}

// cutName reads a segment name up to the next separator.
func cutName(s string) (name, rest string) {
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.', s[i] == '[':
			return s[:i], s[i:]
		case s[i] == '-' && i+1 < len(s) && s[i+1] == '>':
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// convertPathToColumn returns the column a path refers to. Only a single
// any or element segment naming a bare identifier is a column; anything
// else cannot be expressed in SQL.
func convertPathToColumn(p string) (string, bool) {
	segs, err := parsePath(p)
	if err != nil || len(segs) != 1 {
		return "", false
	}
	if s := segs[0]; s.kind != segmentProperty && sql.IsSimpleIdentifier(s.name) {
		return s.name, true
	}
	return "", false
}

// getPath returns the value at path p of item. Missing values are nil.
func getPath(item any, p string) (any, error) {
	segs, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	v := item
	for _, s := range segs {
		var ok bool
		switch s.kind {
		case segmentElement:
			v, ok = element(v, s.name)
		case segmentProperty:
			v, ok = property(v, s.name)
		default:
			if v2, found := element(v, s.name); found {
				v, ok = v2, true
			} else {
				v, ok = property(v, s.name)
			}
		}
		if !ok {
			return nil, nil
		}
	}
	return v, nil
}

func element(v any, name string) (any, bool) {
	switch x := v.(type) {
	case sql.Record:
		return x.Get(name)
	case map[string]any:
		e, ok := x[name]
		return e, ok
	case []any:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(x) {
			return nil, false
		}
		return x[i], true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		e := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !e.IsValid() {
			return nil, false
		}
		return e.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

func property(v any, name string) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	f, ok := rv.Type().FieldByName(name)
	if !ok || !f.IsExported() {
		return nil, false
	}
	fv, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return nil, false
	}
	return fv.Interface(), true
}
