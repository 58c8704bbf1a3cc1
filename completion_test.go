package polyedit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/polyedit/internal/features"
	"github.com/jward/polyedit/internal/markup"
)

func TestElementCompletion_Snippets(t *testing.T) {
	tests := []struct {
		name          string
		slots         []*features.Slot
		hasAttributes bool
		expandTo      string
		snippet       string
	}{
		{
			name:     "bare",
			expandTo: "<x-el></x-el>",
			snippet:  "<x-el></x-el>$0",
		},
		{
			name:          "attributes",
			hasAttributes: true,
			expandTo:      "<x-el ></x-el>",
			snippet:       "<x-el $1></x-el>$0",
		},
		{
			name:     "default slot only",
			slots:    []*features.Slot{{}},
			expandTo: "<x-el></x-el>",
			snippet:  "<x-el>$1</x-el>$0",
		},
		{
			name:          "default slot after attributes",
			slots:         []*features.Slot{{}},
			hasAttributes: true,
			expandTo:      "<x-el ></x-el>",
			snippet:       "<x-el $1>$2</x-el>$0",
		},
		{
			name:          "named slots after attributes",
			slots:         []*features.Slot{{Name: "header"}, {}},
			hasAttributes: true,
			expandTo:      "<x-el ></x-el>",
			snippet: "<x-el $1>\n" +
				"\t<${2:div} slot=\"header\">$3</${2:div}>\n" +
				"\t<${4:div}>$5</${4:div}>\n" +
				"</x-el>$0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &features.Element{TagName: "x-el", Description: "An element.", Slots: tt.slots}
			got := elementCompletion(el, tt.hasAttributes)
			assert.Equal(t, "x-el", got.TagName)
			assert.Equal(t, "An element.", got.Description)
			assert.Equal(t, tt.expandTo, got.ExpandTo)
			assert.Equal(t, tt.snippet, got.ExpandToSnippet)
		})
	}
}

func TestTypesCompatible(t *testing.T) {
	assert.True(t, typesCompatible("string", "string"))
	assert.True(t, typesCompatible("", "number"))
	assert.True(t, typesCompatible("boolean", ""))
	assert.True(t, typesCompatible("Array", "array"))
	assert.False(t, typesCompatible("number", "string"))
}

func TestCompleter_NoneAndSuppressed(t *testing.T) {
	c := &completer{catalog: func() []catalogEntry { return nil }}
	assert.Nil(t, c.complete(markup.Context{Kind: markup.KindNone}))
	assert.Nil(t, c.complete(markup.Context{Kind: markup.KindSuppressed}))
	assert.Nil(t, c.complete(markup.Context{Kind: markup.KindEndTagName, Element: "x-el"}))
}

func TestCompleter_DatabindingUnknownScope(t *testing.T) {
	c := &completer{catalog: func() []catalogEntry { return nil }}
	res := c.complete(markup.Context{Kind: markup.KindDatabinding, Scope: "x-missing"})
	require.NotNil(t, res)
	assert.Equal(t, CompletionDatabinding, res.Kind)
	assert.NotNil(t, res.Properties)
	assert.Empty(t, res.Properties)
}

func TestCompleter_ValueTargetsPropertyType(t *testing.T) {
	g := &features.Graph{Elements: []*features.Element{
		{TagName: "x-host", Properties: []*features.Property{
			{Name: "count", Type: "number"},
			{Name: "label", Type: "string"},
			{Name: "anything"},
		}},
		{TagName: "x-child", Properties: []*features.Property{
			{Name: "size", Type: "number"},
		}},
	}}
	c := &completer{graph: g, catalog: func() []catalogEntry { return nil }}

	res := c.complete(markup.Context{
		Kind:      markup.KindAttributeValue,
		Scope:     "x-host",
		Element:   "x-child",
		Attribute: "size",
		Binding:   markup.BindingTwoWay,
	})
	require.NotNil(t, res)
	names, completions := valueNames(res.Values)
	assert.Equal(t, []string{"anything", "count"}, names)
	assert.Equal(t, []string{"{{anything}}", "{{count}}"}, completions)
}

func TestCompletionResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		res  CompletionResult
		want string
	}{
		{
			name: "element tags",
			res: CompletionResult{Kind: CompletionElementTags, Elements: []ElementCompletion{
				{TagName: "x-el", ExpandTo: "<x-el></x-el>", ExpandToSnippet: "<x-el></x-el>$0"},
			}},
			want: `{"kind": "element-tags", "elements": [
				{"tagname": "x-el", "description": "", "expandTo": "<x-el></x-el>", "expandToSnippet": "<x-el></x-el>$0"}
			]}`,
		},
		{
			name: "attributes keep inheritedFrom",
			res: CompletionResult{Kind: CompletionAttributes, Attributes: []AttributeCompletion{
				{Name: "a", Type: "string", SortKey: "ddd-a", InheritedFrom: "B"},
			}},
			want: `{"kind": "attributes", "attributes": [
				{"name": "a", "description": "", "type": "string", "sortKey": "ddd-a", "inheritedFrom": "B"}
			]}`,
		},
		{
			name: "empty databinding",
			res:  CompletionResult{Kind: CompletionDatabinding},
			want: `{"kind": "properties-in-polymer-databinding", "properties": []}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.res)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
