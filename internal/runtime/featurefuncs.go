package runtime

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/risor-io/risor/object"

	"github.com/jward/polyedit/internal/features"
)

// declarations collects what the declare_* host functions receive during
// one script run. Risor scripts cannot construct Go struct pointers, so
// the functions accept Risor maps with primitive values and build the
// features on the Go side.
type declarations struct {
	url       string
	elements  []*features.Element
	behaviors []*features.Behavior
}

// declare_element({"tag": ..., "class": ..., "description": ...,
// "properties": [...], "attributes": [...], "events": [...],
// "slots": [...], "behaviors": [...]})
func (d *declarations) declareElementFn() *object.Builtin {
	return object.NewBuiltin("declare_element", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declare_element", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("declare_element: %v", err)
		}
		tag := unquote(getString(m, "tag"))
		if tag == "" {
			return object.Errorf("declare_element: tag is required")
		}

		el := &features.Element{
			TagName:     tag,
			ClassName:   getString(m, "class"),
			Description: getString(m, "description"),
			URL:         d.url,
			Behaviors:   stringList(getList(m, "behaviors")),
		}
		if el.Properties, err = properties(getList(m, "properties")); err != nil {
			return object.Errorf("declare_element: %v", err)
		}
		el.Attributes = attributes(getList(m, "attributes"))
		el.Events = events(getList(m, "events"))
		for _, name := range stringList(getList(m, "slots")) {
			el.Slots = append(el.Slots, &features.Slot{Name: name})
		}
		d.elements = append(d.elements, el)
		return object.Nil
	})
}

// declare_behavior({"name": ..., "description": ..., "properties": [...],
// "attributes": [...], "events": [...], "behaviors": [...]})
func (d *declarations) declareBehaviorFn() *object.Builtin {
	return object.NewBuiltin("declare_behavior", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declare_behavior", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("declare_behavior: %v", err)
		}
		name := unquote(getString(m, "name"))
		if name == "" {
			return object.Errorf("declare_behavior: name is required")
		}

		b := &features.Behavior{
			Name:        name,
			Description: getString(m, "description"),
			URL:         d.url,
			Behaviors:   stringList(getList(m, "behaviors")),
		}
		if b.Properties, err = properties(getList(m, "properties")); err != nil {
			return object.Errorf("declare_behavior: %v", err)
		}
		b.Attributes = attributes(getList(m, "attributes"))
		b.Events = events(getList(m, "events"))
		d.behaviors = append(d.behaviors, b)
		return object.Nil
	})
}

func properties(list []object.Object) ([]*features.Property, error) {
	var out []*features.Property
	for i, item := range list {
		m, err := extractMap(item)
		if err != nil {
			return nil, errors.Wrapf(err, "property %d", i)
		}
		name := unquote(getString(m, "name"))
		if name == "" {
			return nil, errors.Newf("property %d: name is required", i)
		}
		out = append(out, &features.Property{
			Name:        name,
			Type:        features.PolymerType(getString(m, "type")),
			Description: getString(m, "description"),
			Notify:      getBool(m, "notify"),
			ReadOnly:    getBool(m, "read_only"),
		})
	}
	return out, nil
}

// attributes accepts either bare names or {"name", "type", "description"} maps.
func attributes(list []object.Object) []*features.Attribute {
	var out []*features.Attribute
	for _, item := range list {
		switch v := item.(type) {
		case *object.String:
			if name := unquote(v.Value()); name != "" {
				out = append(out, &features.Attribute{Name: name})
			}
		case *object.Map:
			m := v.Value()
			if name := unquote(getString(m, "name")); name != "" {
				out = append(out, &features.Attribute{
					Name:        name,
					Type:        getString(m, "type"),
					Description: getString(m, "description"),
				})
			}
		}
	}
	return out
}

// events accepts either bare names or {"name", "description"} maps.
func events(list []object.Object) []*features.Event {
	var out []*features.Event
	for _, item := range list {
		switch v := item.(type) {
		case *object.String:
			if name := unquote(v.Value()); name != "" {
				out = append(out, &features.Event{Name: name})
			}
		case *object.Map:
			m := v.Value()
			if name := unquote(getString(m, "name")); name != "" {
				out = append(out, &features.Event{Name: name, Description: getString(m, "description")})
			}
		}
	}
	return out
}

func stringList(list []object.Object) []string {
	var out []string
	for _, item := range list {
		if s, ok := item.(*object.String); ok {
			out = append(out, unquote(s.Value()))
		}
	}
	return out
}

// unquote strips one pair of matching JavaScript string quotes, so scripts
// can pass node_text of a string literal as is.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch q := s[0]; q {
		case '"', '\'', '`':
			if s[len(s)-1] == q {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, errors.Newf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getBool(m map[string]object.Object, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if b, ok := v.(*object.Bool); ok {
		return b.Value()
	}
	return false
}

func getList(m map[string]object.Object, key string) []object.Object {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if l, ok := v.(*object.List); ok {
		return l.Value()
	}
	return nil
}
