package keymap

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
)

// ApplyOverrides rebinds the key.Binding fields of the struct km points
// to. Override keys are the snake_case field names ("seek", "direction").
// An empty key list disables the binding. Help text is kept.
func ApplyOverrides(km interface{}, overrides map[string][]string) {
	if len(overrides) == 0 {
		return
	}
	v := reflect.ValueOf(km)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}
	applyOverrides(v.Elem(), overrides)
}

func applyOverrides(v reflect.Value, overrides map[string][]string) {
	bindingType := reflect.TypeOf(key.Binding{})
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}
		if meta.Anonymous && field.Kind() == reflect.Struct {
			applyOverrides(field, overrides)
			continue
		}
		if meta.Type != bindingType {
			continue
		}

		keys, ok := overrides[camelToSnake(meta.Name)]
		if !ok {
			continue
		}
		current := field.Interface().(key.Binding)
		if len(keys) == 0 {
			current.SetEnabled(false)
			field.Set(reflect.ValueOf(current))
			continue
		}
		field.Set(reflect.ValueOf(key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(strings.Join(keys, "/"), current.Help().Desc),
		)))
	}
}

// camelToSnake converts a Go field name to its config key: Seek -> seek,
// PageDown -> page_down.
func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
