// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/template"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts template.Options, mods ...func(*config.Runtime)) *template.Engine {
	cfg := config.Default()
	for _, mod := range mods {
		mod(&cfg)
	}
	opts.Config = &cfg

	engine, err := template.NewEngine(opts)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func mergeStr(t *testing.T, engine *template.Engine, src string, ctx template.Context) (string, error) {
	tpl, err := engine.Parse("test.vtl", src)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tpl.Merge(ctx, &buf)
	return buf.String(), err
}

func strict(cfg *config.Runtime) { cfg.StrictReferences = true }

func TestLenientReferences(t *testing.T) {
	engine := newEngine(t, template.Options{})
	ctx := template.NewContextFromMap(map[string]interface{}{"name": "vtl"})

	out, err := mergeStr(t, engine, `$name|$missing|$!missing|${name}s|$name.missing|\$name|\$missing`, ctx)
	require.NoError(t, err)
	assert.Equal(t, `vtl|$missing||vtls|$name.missing|$name|\$missing`, out)
}

func TestStrictReferences(t *testing.T) {
	engine := newEngine(t, template.Options{}, strict)
	newCtx := func() template.Context {
		return template.NewContextFromMap(map[string]interface{}{"name": "vtl", "nullValue": nil})
	}

	t.Run("undefined", func(t *testing.T) {
		_, err := mergeStr(t, engine, "a $missing", newCtx())
		require.Error(t, err)
		assert.ErrorIs(t, err, template.ErrUndefinedReference)
		assert.Contains(t, err.Error(), "Variable '$missing' has not been set at test.vtl:1:3")
	})

	t.Run("undefined with suggestion", func(t *testing.T) {
		_, err := mergeStr(t, engine, "$nmae", newCtx())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Variable '$nmae' has not been set at test.vtl:1:1 (hint: did you mean '$name'?)")
	})

	t.Run("null", func(t *testing.T) {
		_, err := mergeStr(t, engine, "$nullValue", newCtx())
		require.Error(t, err)
		assert.ErrorIs(t, err, template.ErrNullValue)
	})

	t.Run("invalid access", func(t *testing.T) {
		_, err := mergeStr(t, engine, "$name.nope", newCtx())
		require.Error(t, err)
		assert.ErrorIs(t, err, template.ErrInvalidAccess)
	})

	t.Run("testing in conditions", func(t *testing.T) {
		out, err := mergeStr(t, engine, "#if($missing)no#{else}yes#end #if($name)ok#end", newCtx())
		require.NoError(t, err)
		assert.Equal(t, "yes ok", out)
	})

	t.Run("quiet null", func(t *testing.T) {
		out, err := mergeStr(t, engine, "[$!nullValue]", newCtx())
		require.NoError(t, err)
		assert.Equal(t, "[]", out)
	})
}

func TestMergeIsRepeatable(t *testing.T) {
	engine := newEngine(t, template.Options{})

	tpl, err := engine.Parse("test.vtl", "#foreach($i in $list)#set($last = $i)$i,#end$last")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		ctx := template.NewContextFromMap(map[string]interface{}{"list": []interface{}{1, 2, 3}})

		require.NoError(t, tpl.Merge(ctx, &buf))
		assert.Equal(t, "1,2,3,3", buf.String())
		assert.False(t, ctx.ContainsKey("i"), "Expected loop variable to be removed after loop")
	}
}

func TestMacroArgumentWriteBack(t *testing.T) {
	engine := newEngine(t, template.Options{})

	out, err := mergeStr(t, engine, "#macro(inc $n)#set($n = $n + 1)#end#set($c = 1)#inc($c)#inc($c)$c", nil)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestMacroOverflow(t *testing.T) {
	engine := newEngine(t, template.Options{}, func(cfg *config.Runtime) {
		cfg.Velocimacro.MaxDepth = 5
	})

	_, err := mergeStr(t, engine, "#macro(rec)#rec()#end#rec()", nil)
	require.Error(t, err)

	var overflowErr template.MacroOverflowError
	require.True(t, errors.As(err, &overflowErr), "Expected MacroOverflowError, but was %T", err)
	assert.Equal(t, 5, overflowErr.MaxDepth)
	assert.Equal(t, []string{"rec", "rec", "rec", "rec", "rec", "rec"}, overflowErr.Stack)
}

func TestMacroArgumentsStrict(t *testing.T) {
	engine := newEngine(t, template.Options{}, func(cfg *config.Runtime) {
		cfg.Velocimacro.ArgumentsStrict = true
	})

	_, err := mergeStr(t, engine, "#macro(one $a)$a#end#one(1 2)", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected macro 'one' to be called with at most 1 arguments, but was called with 2")

	_, err = mergeStr(t, engine, "#macro(one $a)$a#end#one()", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected macro 'one' to be called with argument '$a'")
}

func TestDefineMacro(t *testing.T) {
	engine := newEngine(t, template.Options{})

	require.NoError(t, engine.DefineMacro("hi", []string{"$who"}, "hi $who"))
	require.Error(t, engine.DefineMacro("foreach", nil, "x"))

	out, err := mergeStr(t, engine, "#hi('there')", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

type greeter struct{}

func (greeter) Greet(name string) string { return "hello " + name }
func (greeter) Fail() (string, error)    { return "", fmt.Errorf("failed on purpose") }
func (greeter) Boom() string             { panic("boom") }

func TestHostMethods(t *testing.T) {
	engine := newEngine(t, template.Options{})
	newCtx := func() template.Context {
		return template.NewContextFromMap(map[string]interface{}{"svc": greeter{}})
	}

	out, err := mergeStr(t, engine, "$svc.greet('x')", newCtx())
	require.NoError(t, err)
	assert.Equal(t, "hello x", out)

	for _, method := range []string{"fail", "boom"} {
		_, err := mergeStr(t, engine, "$svc."+method+"()", newCtx())
		require.Error(t, err)

		var invErr template.MethodInvocationError
		require.True(t, errors.As(err, &invErr), "Expected MethodInvocationError, but was %T", err)
		assert.Equal(t, method, invErr.Method)
		assert.Equal(t, "$svc."+method+"()", invErr.Reference)
	}
}

func TestControlFlow(t *testing.T) {
	engine := newEngine(t, template.Options{}, func(cfg *config.Runtime) {
		cfg.ScopeControl = []string{config.ScopeForeach, config.ScopeMacro}
	})

	cases := []struct {
		src      string
		expected string
	}{
		{"a#{stop}b", "a"},
		{"#foreach($i in [1..5])$i#if($i == 2)#{break}#end#end", "12"},
		{"#foreach($i in [1..3])$i#if($foreach.hasNext)$foreach.stop()#end#end", "1"},
		{"#foreach($i in [1..3])$foreach.count#end", "123"},
		{"#macro(m)a$macro.stop()b#end#m()c", "ac"},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			out, err := mergeStr(t, engine, tc.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestStopThroughCoercions(t *testing.T) {
	engine := newEngine(t, template.Options{})

	cases := []struct {
		src      string
		expected string
	}{
		{`#define($d)x#stop y#end#set($s = $d + "z")[$s]after`, ""},
		{`#define($d)x#stop y#end#set($s = "z" + $d)[$s]after`, ""},
		{`#define($d)x#stop y#end#if($d == "x")eq#end after`, ""},
		{`#define($d)x#stop y#end#evaluate($d)after`, ""},
		{`#define($d)x#stop#end#set($s = "[$d]")$s after`, ""},
		{`a#foreach($i in [1..3])#define($d)<$i>#break#end#set($s = $d + "!")$s#end b`, "a b"},
		// lazily bound macro argument read while pushing foreach scope
		{`#define($d)x#stop#end#macro(m $foreach)#foreach($i in [1..2])$i#end#end#m("$d")after`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			out, err := mergeStr(t, engine, tc.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestRangeBounds(t *testing.T) {
	for _, immutable := range []bool{false, true} {
		engine := newEngine(t, template.Options{}, func(cfg *config.Runtime) {
			cfg.ImmutableRanges = immutable
			cfg.ForeachMaxLoops = 3
		})

		for _, src := range []string{
			"#set($r = [0..9223372036854775807])$r.size()",
			"#set($r = [9223372036854775807..0])$r.size()",
			"#foreach($i in [0..9223372036854775807])$i#end",
		} {
			_, err := mergeStr(t, engine, src, nil)
			var sizeErr introspect.RangeSizeError
			require.ErrorAs(t, err, &sizeErr, "immutable %t: %s", immutable, src)
			assert.Equal(t, math.MaxInt, sizeErr.Max)
		}

		out, err := mergeStr(t, engine, "#foreach($i in [0..3000000000])$i,#end", nil)
		require.NoError(t, err)
		assert.Equal(t, "0,1,2,", out)

		out, err = mergeStr(t, engine, "#foreach($i in [9223372036854775806..9223372036854775807])$i,#end", nil)
		require.NoError(t, err)
		assert.Equal(t, "9223372036854775806,9223372036854775807,", out)
	}

	engine := newEngine(t, template.Options{})
	_, err := mergeStr(t, engine, "#set($r = [1..3000000000])", nil)
	var sizeErr introspect.RangeSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, introspect.MaxListRangeLen, sizeErr.Max)

	engine = newEngine(t, template.Options{}, func(cfg *config.Runtime) { cfg.ImmutableRanges = true })
	out, err := mergeStr(t, engine, "#set($r = [1..3000000000])$r.size()", nil)
	require.NoError(t, err)
	assert.Equal(t, "3000000000", out)
}

func TestStructuredSpaceGobbling(t *testing.T) {
	engine := newEngine(t, template.Options{}, func(cfg *config.Runtime) {
		cfg.SpaceGobbling = config.SpaceGobblingStructured
	})

	src := "<ul>\n  #foreach($i in [1..2])\n    <li>$i</li>\n    #if($i == 2)\n      last\n    #end\n  #end\n</ul>\n"

	out, err := mergeStr(t, engine, src, nil)
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n  <li>1</li>\n  <li>2</li>\n  last\n</ul>\n", out)
}

func TestDefineMaxDepth(t *testing.T) {
	engine := newEngine(t, template.Options{})

	out, err := mergeStr(t, engine, "#define($r)x$r#end$r", nil)
	require.NoError(t, err)
	assert.Equal(t, "xx", out)
}

func TestInvalidReferenceReporter(t *testing.T) {
	reporter := &template.InvalidReferenceReporter{}
	engine := newEngine(t, template.Options{
		InvalidReferenceHandlers: []template.InvalidReferenceHandler{reporter},
	})
	ctx := template.NewContextFromMap(map[string]interface{}{"name": "vtl"})

	_, err := mergeStr(t, engine, "$missing $name.nope $!quiet", ctx)
	require.NoError(t, err)

	invalid := reporter.Invalid()
	require.Len(t, invalid, 2)
	assert.Equal(t, "$missing at test.vtl:1:1", invalid[0].String())
	assert.Equal(t, "$name.nope", invalid[1].Reference)
}

func TestEscapeHTMLReference(t *testing.T) {
	engine := newEngine(t, template.Options{
		InsertionHandlers: []template.ReferenceInsertionHandler{
			template.EscapeHTMLReference{MatchPattern: regexp.MustCompile(`^\$html`)},
		},
	})
	ctx := template.NewContextFromMap(map[string]interface{}{"html": "<b>", "raw": "<i>"})

	out, err := mergeStr(t, engine, "$html $raw", ctx)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt; <i>", out)
}

type upperDirective struct {
	body template.Node
}

func (d *upperDirective) Init(b *template.Binder, node *ast.Directive) error {
	var err error
	d.body, err = b.BindBody(node, node.Body)
	return err
}

func (d *upperDirective) Render(s *template.State, w io.Writer) error {
	var buf bytes.Buffer
	err := d.body.Render(s, &buf)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, strings.ToUpper(buf.String()))
	return err
}

func TestRegisterDirective(t *testing.T) {
	engine := newEngine(t, template.Options{})

	factory := func() template.Directive { return &upperDirective{} }

	require.NoError(t, engine.RegisterDirective("upper", ast.BlockDirective, factory))
	require.Error(t, engine.RegisterDirective("end", ast.BlockDirective, factory))

	ctx := template.NewContextFromMap(map[string]interface{}{"name": "vtl"})

	out, err := mergeStr(t, engine, "#upper()x $name#end", ctx)
	require.NoError(t, err)
	assert.Equal(t, "X VTL", out)
}

func TestConcurrentMerge(t *testing.T) {
	engine := newEngine(t, template.Options{})

	tpl, err := engine.Parse("test.vtl", "#macro(twice $v)$v$v#end#twice($n)")
	require.NoError(t, err)

	const count = 20

	var wg sync.WaitGroup
	results := make([]string, count)
	errs := make([]error, count)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			errs[i] = tpl.Merge(template.NewContextFromMap(map[string]interface{}{"n": i}), &buf)
			results[i] = buf.String()
		}(i)
	}
	wg.Wait()

	for i := 0; i < count; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("%d%d", i, i), results[i])
	}
}

func TestRangesFuzz(t *testing.T) {
	engine := newEngine(t, template.Options{})

	tpl, err := engine.Parse("test.vtl", "#foreach($i in [$a..$b])$i,#end")
	require.NoError(t, err)

	f := fuzz.New()

	for i := 0; i < 50; i++ {
		var a, b int8
		f.Fuzz(&a)
		f.Fuzz(&b)

		var expected strings.Builder
		step := 1
		if a > b {
			step = -1
		}
		for n := int(a); ; n += step {
			fmt.Fprintf(&expected, "%d,", n)
			if n == int(b) {
				break
			}
		}

		var buf bytes.Buffer
		ctx := template.NewContextFromMap(map[string]interface{}{"a": int(a), "b": int(b)})

		require.NoError(t, tpl.Merge(ctx, &buf))
		require.Equal(t, expected.String(), buf.String(), "range [%d..%d]", a, b)
	}
}

func TestEvaluate(t *testing.T) {
	engine := newEngine(t, template.Options{})
	ctx := template.NewContextFromMap(map[string]interface{}{"name": "vtl"})

	var buf bytes.Buffer
	require.NoError(t, engine.Evaluate(ctx, &buf, "inline", "$name!"))
	assert.Equal(t, "vtl!", buf.String())

	err := engine.Evaluate(ctx, &buf, "inline", "#set($a)")
	require.Error(t, err)

	var initErr template.TemplateInitError
	require.True(t, errors.As(err, &initErr), "Expected TemplateInitError, but was %T", err)
	assert.Equal(t, "Expected #set to be of form ($ref = value) at inline:1:1", initErr.Error())
}

func TestClosedEngine(t *testing.T) {
	engine := newEngine(t, template.Options{})

	tpl, err := engine.Parse("test.vtl", "x")
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	err = tpl.Merge(nil, &bytes.Buffer{})
	require.EqualError(t, err, "Merging template 'test.vtl': engine is closed")

	_, err = engine.GetTemplate("test.vtl")
	require.EqualError(t, err, "Getting template 'test.vtl': engine is closed")
}

func TestLayeredContext(t *testing.T) {
	parent := template.NewContextFromMap(map[string]interface{}{"a": 1, "b": 2})
	ctx := template.NewLayeredContext(parent)

	assert.Equal(t, 1, ctx.Put("a", 10))

	val, found := ctx.Get("a")
	require.True(t, found)
	assert.Equal(t, 10, val)

	val, _ = parent.Get("a")
	assert.Equal(t, 1, val, "Expected parent to be unchanged")

	assert.Equal(t, []string{"a", "b"}, ctx.Keys())

	ctx.Remove("a")
	val, _ = ctx.Get("a")
	assert.Equal(t, 1, val)
}
