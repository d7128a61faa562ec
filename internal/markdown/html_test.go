package markdown_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-mdmigrate/internal/markdown"
	"github.com/goliatone/go-mdmigrate/pkg/testsupport"
)

func TestFromHTML_Conversions(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bold inside paragraph", input: "<p>Hello <b>World</b></p>", want: "Hello **World**"},
		{name: "italic", input: "<i>done</i>", want: "*done*"},
		{name: "strong and em", input: "<p><strong>a</strong> and <em>b</em></p>", want: "**a** and *b*"},
		{name: "strikethrough", input: "<p><del>old</del> new</p>", want: "~~old~~ new"},
		{name: "paragraphs", input: "<p>one</p><p>two</p>", want: "one\n\ntwo"},
		{name: "divs", input: "<div>one</div><div>two</div>", want: "one\n\ntwo"},
		{name: "line break", input: "<p>one<br>two</p>", want: "one\\\ntwo"},
		{name: "trailing line break", input: "<p>one<br></p>", want: "one"},
		{name: "double line break splits", input: "<p>one<br><br>two</p>", want: "one\n\ntwo"},
		{name: "heading marker escaped", input: "<p># not heading</p>", want: `\# not heading`},
		{name: "list marker escaped", input: "<p>- not a list</p>", want: `\- not a list`},
		{name: "ordered marker escaped", input: "<p>1. not a list</p>", want: `1\. not a list`},
		{name: "quote marker escaped", input: "<p>&gt; not quoted</p>", want: `\> not quoted`},
		{name: "inline metacharacters", input: "<p>2*3*4 = 24 for snake_case [x] `t`</p>", want: "2\\*3\\*4 = 24 for snake\\_case \\[x\\] \\`t\\`"},
		{name: "adjacent emphasis merged", input: "<i>a</i><i>b</i>", want: "*ab*"},
		{name: "bold around paragraph", input: "<b><p>bold para</p></b>", want: "**bold para**"},
		{name: "bold around heading", input: "<strong><h2>Scope</h2><p>body</p></strong>", want: "## **Scope**\n\n**body**"},
		{name: "heading", input: "<h2>Scope</h2><p>body</p>", want: "## Scope\n\nbody"},
		{name: "rule", input: "<p>a</p><hr><p>b</p>", want: "a\n\n---\n\nb"},
		{name: "unordered list", input: "<ul><li>a</li><li>b</li></ul>", want: "- a\n- b"},
		{name: "ordered list", input: "<ol><li>a</li><li>b</li></ol>", want: "1. a\n2. b"},
		{name: "ordered list start", input: `<ol start="3"><li>a</li><li>b</li></ol>`, want: "3. a\n4. b"},
		{name: "nested list", input: "<ul><li>a<ul><li>b</li></ul></li></ul>", want: "- a\n  - b"},
		{name: "blockquote", input: "<blockquote><p>quoted</p></blockquote>", want: "> quoted"},
		{name: "link", input: `<p>see <a href="https://example.com/a b">docs</a></p>`, want: "see [docs](https://example.com/a%20b)"},
		{name: "script link dropped", input: `<p><a href="javascript:alert(1)">x</a></p>`, want: "x"},
		{name: "image", input: `<p><img src="/i.png" alt="logo"></p>`, want: "![logo](/i.png)"},
		{name: "inline code", input: "<p>run <code>make</code></p>", want: "run `make`"},
		{name: "fenced code", input: `<pre><code class="language-go">x := 1</code></pre>`, want: "```go\nx := 1\n```"},
		{name: "table", input: "<table><tr><th>a</th><th>b</th></tr><tr><td>1</td><td>2</td></tr></table>", want: "| a | b |\n| --- | --- |\n| 1 | 2 |"},
		{name: "script dropped", input: "<p>a</p><script>alert(1)</script>", want: "a"},
		{name: "entities kept literal", input: "<p>AT&amp;T &lt;b&gt;</p>", want: "AT&T &lt;b>"},
		{name: "whitespace collapsed", input: "<p>  a \n\n  b  </p>", want: "a b"},
		{name: "empty markup", input: "<p></p>", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := markdown.FromHTML(tc.input)
			if got != tc.want {
				t.Fatalf("FromHTML(%q)\nwant: %q\ngot:  %q", tc.input, tc.want, got)
			}
		})
	}
}

func TestFromHTML_EditorFixtures(t *testing.T) {
	pairs, err := testsupport.FixturePairs("testdata", ".html", ".md")
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatalf("no fixtures found")
	}
	for name, pair := range pairs {
		t.Run(name, func(t *testing.T) {
			if got := markdown.FromHTML(pair[0]); got != pair[1] {
				t.Fatalf("fixture %s\nwant:\n%s\ngot:\n%s", name, pair[1], got)
			}
		})
	}
}

func TestFromHTML_PlainTextUnchanged(t *testing.T) {
	for _, input := range []string{"plain", "", "  spaced  ", "a < b and c > d", "**already** markdown", `<img src="x.png">`} {
		if got := markdown.FromHTML(input); got != input {
			t.Fatalf("expected %q to pass through, got %q", input, got)
		}
	}
}

func TestFromHTML_OutputHasNoTags(t *testing.T) {
	inputs := []string{
		"<p>Hello <b>World</b></p>",
		"<p><code>&lt;b&gt;bold&lt;/b&gt;</code></p>",
		"<pre>&lt;div&gt;x&lt;/div&gt;</pre>",
		"<p>&lt;i&gt;literal&lt;/i&gt;</p>",
		"<div><span><p>nested</p></span></div>",
		"<b>unclosed <i>tags",
		"</p>stray closer",
	}
	for _, input := range inputs {
		got := markdown.FromHTML(input)
		if markdown.HasTags(got) {
			t.Fatalf("FromHTML(%q) still has tags: %q", input, got)
		}
	}
}

func TestFromHTML_FixedPoint(t *testing.T) {
	inputs := []string{
		"plain",
		"<p>Hello <b>World</b></p>",
		"<ul><li>a</li><li><i>b</i></li></ul>",
		"<p><code>&lt;b&gt;</code></p>",
		"<table><tr><td>x|y</td></tr></table>",
		"<p>a &amp;amp; b</p>",
	}
	for _, input := range inputs {
		once := markdown.FromHTML(input)
		twice := markdown.FromHTML(once)
		if once != twice {
			t.Fatalf("not a fixed point for %q\nonce:  %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestHasTags(t *testing.T) {
	if !markdown.HasTags("a <b>c</b>") {
		t.Fatalf("expected markup to be detected")
	}
	if !markdown.HasTags(`<a href="x">y</a>`) {
		t.Fatalf("expected closing tag to be detected")
	}
	if markdown.HasTags("1 < 2 > 0") {
		t.Fatalf("comparison operators are not markup")
	}
	if !strings.Contains(markdown.TagExpression, "</") {
		t.Fatalf("expression should cover closing tags")
	}
}

func TestFromHTML_RendersLikeSource(t *testing.T) {
	parser := markdown.NewGoldmarkParser(markdown.RenderOptions{})
	cases := map[string]string{
		"<p># not heading</p>":           "<p># not heading</p>",
		"<p>line1<br>line2</p>":          "<p>line1<br>\nline2</p>",
		"<i>a</i><i>b</i>":               "<p><em>ab</em></p>",
		"<p>2*3*4 = 24</p>":              "<p>2*3*4 = 24</p>",
		"<b><p>bold para</p></b>":        "<p><strong>bold para</strong></p>",
		"<p>1. first</p>":                "<p>1. first</p>",
		"<p>- item</p>":                  "<p>- item</p>",
		"<p>&gt; quoted</p>":             "<p>&gt; quoted</p>",
		"<p>[x] and snake_case</p>":      "<p>[x] and snake_case</p>",
		"<p><b>a</b><i>b</i></p>":        "<p><strong>a</strong><em>b</em></p>",
		"<p>~~kept~~ <del>gone</del></p>": "<p>~~kept~~ <del>gone</del></p>",
	}
	for input, want := range cases {
		md := markdown.FromHTML(input)
		out, err := parser.Parse([]byte(md))
		if err != nil {
			t.Fatalf("parse %q: %v", md, err)
		}
		if got := strings.TrimSpace(string(out)); got != want {
			t.Fatalf("FromHTML(%q) = %q rendered as %q, want %q", input, md, got, want)
		}
		if again := markdown.FromHTML(md); again != md {
			t.Fatalf("not a fixed point for %q: %q then %q", input, md, again)
		}
	}
}

func TestGoldmarkParser_RendersConvertedMarkdown(t *testing.T) {
	parser := markdown.NewGoldmarkParser(markdown.RenderOptions{})
	out, err := parser.Parse([]byte(markdown.FromHTML("<p>Hello <b>World</b></p>")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "<p>Hello <strong>World</strong></p>" {
		t.Fatalf("unexpected html %q", got)
	}

	table, err := parser.Parse([]byte("| a |\n| --- |\n| 1 |"))
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	if !strings.Contains(string(table), "<table>") {
		t.Fatalf("expected gfm table, got %q", table)
	}
}
