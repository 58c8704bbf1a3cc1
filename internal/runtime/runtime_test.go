package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsTestSource = `class Greeter extends HTMLElement {
  greet(name) {
    return 'Hello, ' + name;
  }
}

function add(a, b) {
  return a + b;
}

customElements.define('x-greeter', Greeter);
`

// parseJSSource is a test helper that parses JavaScript source using
// tree-sitter directly and registers it in a fresh source store.
func parseJSSource(t *testing.T, src string) (*sitter.Node, *sourceStore) {
	t.Helper()

	lang, ok := ParserForLanguage("javascript")
	require.True(t, ok, "javascript language not found")

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)

	ss := newSourceStore()
	ss.store(tree, []byte(src), lang)
	t.Cleanup(ss.release)

	return tree.RootNode(), ss
}

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"index.html", "html", true},
		{"INDEX.HTM", "html", true},
		{"app.js", "javascript", true},
		{"mod.mjs", "javascript", true},
		{"style.css", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"html", "javascript"} {
		l, ok := ParserForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, l, lang)
	}
	_, ok := ParserForLanguage("cobol")
	assert.False(t, ok)
}

// --- source store tests ---

func TestSourceStore_LookupFromNestedNode(t *testing.T) {
	root, ss := parseJSSource(t, jsTestSource)

	class := root.NamedChild(0)
	require.Equal(t, "class_declaration", class.Type())
	name := class.ChildByFieldName("name")

	src, ok := ss.sourceForNode(name)
	require.True(t, ok)
	assert.Equal(t, "Greeter", name.Content(src))

	_, ok = ss.languageForNode(name)
	assert.True(t, ok)
}

func TestSourceStore_Release(t *testing.T) {
	root, ss := parseJSSource(t, jsTestSource)
	_, ok := ss.sourceForNode(root)
	require.True(t, ok)

	ss.release()
	assert.Empty(t, ss.trees)
	assert.Empty(t, ss.sources)
	assert.Empty(t, ss.langs)
}

// --- Risor integration tests (via RunSource) ---

func TestRunSource_ParseAndNodeText(t *testing.T) {
	rt := NewRuntime("")

	script := `
tree := parse_src(src, "javascript")
root := tree.RootNode()

assert(root.Type() == "program", "expected program")

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    child := root.NamedChild(i)
    if child.Type() == "function_declaration" || child.Type() == "class_declaration" {
        names.append(node_text(node_child(child, "name")))
    }
}

assert(len(names) == 2, 'expected 2 declarations, got {len(names)}')
assert(names[0] == "Greeter", 'expected Greeter, got {names[0]}')
assert(names[1] == "add", 'expected add, got {names[1]}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "javascript").RootNode()

matches := query("(method_definition name: (property_identifier) @name)", root)
assert(len(matches) == 1, 'expected 1 match, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "greet", "expected greet")

calls := query("(call_expression function: (member_expression property: (property_identifier) @fn) arguments: (arguments (string) @tag))", root)
assert(len(calls) == 1, 'expected 1 call, got {len(calls)}')
assert(node_text(calls[0]["tag"]) == "'x-greeter'", "expected quoted tag")
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryHTML(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "html").RootNode()
names := query("(tag_name) @name", root)
assert(len(names) == 4, 'expected 4 tag names, got {len(names)}')
assert(node_text(names[0]["name"]) == "dom-module", "expected dom-module")
`
	err := rt.RunSource(context.Background(), script, map[string]any{
		"src": `<dom-module id="x-a"><template></template></dom-module>`,
	})
	require.NoError(t, err)
}

func TestRunSource_QueryNoMatches(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("var x = 1;", "javascript").RootNode()
matches := query("(class_declaration) @c", root)
assert(len(matches) == 0, 'expected 0 matches, got {len(matches)}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("var x = 1;", "javascript").RootNode()
query("(not_a_real_node_type @x)", root)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.Error(t, err)
}

func TestRunSource_UnsupportedLanguage(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_NodeChildMissingFieldIsNil(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("var C = class {};", "javascript").RootNode()
classes := query("(class) @c", root)
assert(len(classes) == 1, "expected an anonymous class")
assert(node_child(classes[0]["c"], "name") == nil, "anonymous class has no name")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_NodeTraversal(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "javascript").RootNode()

assert(root.ChildCount() > 0, "root should have children")

first := root.NamedChild(0)
parent := first.Parent()
assert(parent.Type() == "program", "parent should be program")

sp := first.StartPoint()
assert(int(sp.Row) == 0, 'expected row 0, got {int(sp.Row)}')
assert(int(sp.Column) == 0, 'expected col 0, got {int(sp.Column)}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestExtractionScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("extract", "polymer2.risor"), ExtractionScriptPath("polymer2"))
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"extract/a.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("extract/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path resolves within the FS.
	got, err = rt.LoadScript("/extract/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))
	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestScripts_FromFSFS(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"extract/b.risor":     &fstest.MapFile{Data: []byte(`x := 1`)},
		"extract/a.risor":     &fstest.MapFile{Data: []byte(`x := 1`)},
		"extract/notes.txt":   &fstest.MapFile{Data: []byte(`not a script`)},
		"other/skip.risor":    &fstest.MapFile{Data: []byte(`x := 1`)},
		"extract/sub/c.risor": &fstest.MapFile{Data: []byte(`x := 1`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.Scripts(ExtractDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"extract/a.risor", "extract/b.risor"}, got)
}

func TestScripts_FromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extract"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extract", "z.risor"), []byte(`x := 1`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extract", "y.risor"), []byte(`x := 1`), 0644))

	rt := NewRuntime(dir)
	got, err := rt.Scripts(ExtractDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("extract", "y.risor"), filepath.Join("extract", "z.risor")}, got)

	for _, s := range got {
		require.NoError(t, rt.RunScript(context.Background(), s, nil))
	}

	empty, err := NewRuntime(t.TempDir()).Scripts(ExtractDir)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The module references the "log" global provided by the host; without
	// global names passed to the importer it would fail to compile.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.NotNil(t, rt.logger)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
