package freezedry

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
)

type fieldInfo struct {
	name      string
	index     []int
	skip      bool
	nocompare bool
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	fields := collectFields(t, nil)
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]fieldInfo)
}

func collectFields(t reflect.Type, parent []int) []fieldInfo {
	var out []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int{}, parent...), i)
		tag, hasTag := sf.Tag.Lookup("freezedry")

		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		info := fieldInfo{index: index}
		name, opts, _ := strings.Cut(tag, ",")
		switch {
		case name == "-":
			info.skip = true
			info.name = snakeCase(sf.Name)
		case name != "":
			info.name = name
		default:
			info.name = snakeCase(sf.Name)
		}
		for _, opt := range strings.Split(opts, ",") {
			if opt == "nocompare" {
				info.nocompare = true
			}
		}
		if strings.HasPrefix(info.name, MemoPrefix) {
			info.skip = true
		}
		out = append(out, info)
	}
	return out
}

func snakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
