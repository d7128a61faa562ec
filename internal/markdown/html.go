package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TagExpression matches an opening or closing tag without attributes. Rows
// whose rich-text columns do not match it are never selected for conversion.
const TagExpression = `(<[a-zA-Z]+>)+|(</[a-zA-Z]+>)+`

// TagPattern is the compiled TagExpression.
var TagPattern = regexp.MustCompile(TagExpression)

var (
	whitespaceRun = regexp.MustCompile(`[ \t\n\r\f\x{00a0}]+`)
	spaceRun      = regexp.MustCompile(` {2,}`)
	entityLike    = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*|#[0-9]+|#[xX][0-9A-Fa-f]+);`)
	backtickRun   = regexp.MustCompile("`+")

	// Paragraph lines that would otherwise open a heading, list, quote or
	// setext underline.
	blockMarkerStart = regexp.MustCompile(`^(#{1,6}(?:[ \t]|$)|[-+](?:[ \t]|$)|>|(?:-+|=+)[ \t]*$)`)
	orderedStart     = regexp.MustCompile(`^([0-9]{1,9})([.)])([ \t]|$)`)
)

// hardBreak stands in for <br> until cleanParagraph knows whether another
// line follows it.
const hardBreak = "\x00\n"

var textEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "~", `\~`,
)

var fragmentContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// HasTags reports whether s contains anything TagPattern recognises as markup.
func HasTags(s string) bool {
	return TagPattern.MatchString(s)
}

// FromHTML rewrites an HTML fragment as Markdown. Input without markup is
// returned as is, and the output never contains markup, so
// FromHTML(FromHTML(s)) == FromHTML(s). It never fails.
func FromHTML(input string) string {
	if !HasTags(input) {
		return input
	}

	var out string
	nodes, err := html.ParseFragment(strings.NewReader(input), fragmentContext)
	if err != nil {
		out = cleanParagraph(escapeText(collapse(TagPattern.ReplaceAllString(input, " "))))
	} else {
		out = strings.Join(convertBlocks(nodes), "\n\n")
	}

	// Code spans and fences cannot carry entities; break any markup they
	// would otherwise leak.
	if strings.Contains(out, "<") && HasTags(out) {
		out = strings.ReplaceAll(out, "<", "&lt;")
	}
	return strings.TrimSpace(out)
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Center: true, atom.Dd: true, atom.Details: true, atom.Dir: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Menu: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Summary: true, atom.Table: true, atom.Ul: true,
}

var droppedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Title: true,
	atom.Noscript: true, atom.Template: true, atom.Iframe: true, atom.Object: true,
	atom.Select: true, atom.Textarea: true,
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && blockElements[n.DataAtom]
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlock(c) || hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

// flatten unwraps non-emphasis inline elements that contain blocks (a <font>
// wrapping paragraphs) so their children take part in block layout.
func flatten(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode && !isBlock(n) && !droppedElements[n.DataAtom] &&
			emphasisMarker(n) == "" && hasBlockDescendant(n) {
			out = append(out, flatten(children(n))...)
			continue
		}
		out = append(out, n)
	}
	return out
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func convertBlocks(nodes []*html.Node) []string {
	var (
		blocks []string
		inline []*html.Node
	)
	flush := func() {
		if text := cleanParagraph(inlineRun(inline)); text != "" {
			blocks = append(blocks, text)
		}
		inline = inline[:0]
	}
	for _, n := range flatten(nodes) {
		switch {
		case isBlock(n):
			flush()
			blocks = append(blocks, convertBlock(n)...)
		case emphasisMarker(n) != "" && hasBlockDescendant(n):
			// Emphasis wrapping whole blocks, e.g. <b><p>..</p></b>.
			flush()
			blocks = append(blocks, emphasizeBlocks(emphasisMarker(n), convertBlocks(children(n)))...)
		default:
			inline = append(inline, n)
		}
	}
	flush()
	return blocks
}

// emphasizeBlocks applies marker to paragraph and heading text, leaving
// fences, tables and rules alone.
func emphasizeBlocks(marker string, blocks []string) []string {
	for i, block := range blocks {
		if strings.HasPrefix(block, "```") || strings.HasPrefix(block, "|") || block == "---" {
			continue
		}
		lines := strings.Split(block, "\n")
		for j, line := range lines {
			prefix := blockPrefix.FindString(line)
			body, hard := cutHardBreak(line[len(prefix):])
			lines[j] = prefix + emphasize(marker, body)
			if hard {
				lines[j] += `\`
			}
		}
		blocks[i] = strings.Join(lines, "\n")
	}
	return blocks
}

var blockPrefix = regexp.MustCompile(`^(?:[ ]*(?:#{1,6} |- |[0-9]+\. |> ?))*`)

func convertBlock(n *html.Node) []string {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		text := singleLine(strings.Join(convertBlocks(children(n)), " "))
		if text == "" {
			return nil
		}
		level := int(n.Data[1] - '0')
		return []string{strings.Repeat("#", level) + " " + text}
	case atom.Hr:
		return []string{"---"}
	case atom.Pre:
		return fencedCode(n)
	case atom.Ul, atom.Ol, atom.Menu, atom.Dir:
		return list(n)
	case atom.Li:
		item := strings.Join(convertBlocks(children(n)), "\n")
		if item == "" {
			return nil
		}
		return []string{indentItem("- ", item)}
	case atom.Blockquote:
		inner := convertBlocks(children(n))
		if len(inner) == 0 {
			return nil
		}
		lines := strings.Split(strings.Join(inner, "\n\n"), "\n")
		for i, line := range lines {
			if line == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + line
			}
		}
		return []string{strings.Join(lines, "\n")}
	case atom.Table:
		return table(n)
	default:
		return convertBlocks(children(n))
	}
}

func convertInline(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return escapeText(collapse(n.Data))
	case html.ElementNode:
	default:
		return ""
	}

	if droppedElements[n.DataAtom] {
		return ""
	}

	if marker := emphasisMarker(n); marker != "" {
		return emphasize(marker, inlineChildren(n))
	}

	switch n.DataAtom {
	case atom.Br:
		return hardBreak
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		return codeSpan(collapse(textContent(n)))
	case atom.A:
		return link(n)
	case atom.Img:
		return image(n)
	}
	if isBlock(n) {
		return "\n" + strings.Join(convertBlocks(children(n)), "\n") + "\n"
	}
	return inlineChildren(n)
}

func inlineChildren(n *html.Node) string {
	return inlineRun(children(n))
}

// inlineRun converts sibling inline nodes. Adjacent siblings with the same
// emphasis are merged so their markers do not run together.
func inlineRun(nodes []*html.Node) string {
	var b strings.Builder
	for i := 0; i < len(nodes); {
		marker := emphasisMarker(nodes[i])
		if marker == "" {
			b.WriteString(convertInline(nodes[i]))
			i++
			continue
		}
		var inner strings.Builder
		for ; i < len(nodes) && emphasisMarker(nodes[i]) == marker; i++ {
			inner.WriteString(inlineChildren(nodes[i]))
		}
		b.WriteString(emphasize(marker, inner.String()))
	}
	return b.String()
}

func emphasisMarker(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	switch n.DataAtom {
	case atom.B, atom.Strong:
		return "**"
	case atom.I, atom.Em, atom.Cite, atom.Dfn:
		return "*"
	case atom.S, atom.Strike, atom.Del:
		return "~~"
	}
	return ""
}

// emphasize wraps every non-empty line of content with marker, keeping the
// surrounding whitespace and hard breaks outside the markers.
func emphasize(marker, content string) string {
	if marker == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		core := strings.TrimFunc(line, isLineSpace)
		if core == "" {
			continue
		}
		if strings.HasPrefix(core, marker) && strings.HasSuffix(core, marker) && len(core) > 2*len(marker) {
			continue
		}
		start := strings.Index(line, core)
		lines[i] = line[:start] + marker + core + marker + line[start+len(core):]
	}
	return strings.Join(lines, "\n")
}

func codeSpan(content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	longest := 0
	for _, run := range backtickRun.FindAllString(content, -1) {
		longest = max(longest, len(run))
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") {
		content = " " + content + " "
	}
	return fence + content + fence
}

func isLineSpace(r rune) bool {
	return unicode.IsSpace(r) || r == 0
}

func link(n *html.Node) string {
	inner := strings.ReplaceAll(inlineChildren(n), hardBreak, " ")
	inner = strings.ReplaceAll(inner, "\n", " ")
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return inner
	}
	text := strings.TrimSpace(inner)
	if text == "" {
		text = escapeText(href)
	}
	start := strings.Index(inner, text)
	lead, trail := "", ""
	if start >= 0 {
		lead, trail = inner[:start], inner[start+len(text):]
	}
	return lead + "[" + text + "](" + escapeURL(href) + ")" + trail
}

func image(n *html.Node) string {
	src := strings.TrimSpace(attr(n, "src"))
	alt := escapeText(collapse(attr(n, "alt")))
	if src == "" {
		return alt
	}
	return "![" + strings.TrimSpace(alt) + "](" + escapeURL(src) + ")"
}

func fencedCode(n *html.Node) []string {
	content := strings.TrimRight(textContent(n), "\n\r\t ")
	content = strings.TrimLeft(content, "\n\r")
	if strings.TrimSpace(content) == "" {
		return nil
	}
	longest := 2
	for _, run := range backtickRun.FindAllString(content, -1) {
		longest = max(longest, len(run))
	}
	fence := strings.Repeat("`", longest+1)
	info := ""
	if code := firstElementChild(n); code != nil && code.DataAtom == atom.Code {
		for _, class := range strings.Fields(attr(code, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				info = lang
				break
			}
		}
	}
	return []string{fence + info + "\n" + content + "\n" + fence}
}

func list(n *html.Node) []string {
	ordered := n.DataAtom == atom.Ol
	index := 1
	if ordered {
		if start, err := strconv.Atoi(strings.TrimSpace(attr(n, "start"))); err == nil {
			index = start
		}
	}

	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			body := strings.Join(convertBlocks(children(c)), "\n")
			if body == "" {
				continue
			}
			marker := "- "
			if ordered {
				marker = fmt.Sprintf("%d. ", index)
				index++
			}
			items = append(items, indentItem(marker, body))
			continue
		}

		// Stray content between items: nested lists hang off the previous item.
		body := strings.Join(convertBlocks([]*html.Node{c}), "\n")
		if body == "" {
			continue
		}
		if len(items) > 0 {
			items[len(items)-1] += "\n" + indent(body, "  ")
			continue
		}
		items = append(items, body)
	}
	if len(items) == 0 {
		return nil
	}
	return []string{strings.Join(items, "\n")}
}

func indentItem(marker, body string) string {
	lines := strings.Split(body, "\n")
	pad := strings.Repeat(" ", len(marker))
	for i := range lines {
		if i == 0 {
			lines[i] = marker + lines[i]
		} else if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func indent(body, pad string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func table(n *html.Node) []string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			case atom.Tr:
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.DataAtom == atom.Td || cell.DataAtom == atom.Th) {
						text := singleLine(strings.Join(convertBlocks(children(cell)), " "))
						cells = append(cells, strings.ReplaceAll(text, "|", `\|`))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
			}
		}
	}
	walk(n)
	if len(rows) == 0 {
		return nil
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	lines := make([]string, 0, len(rows)+1)
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return []string{strings.Join(lines, "\n")}
}

// cleanParagraph trims every line, collapses inner space runs and keeps at
// most one blank line between non-empty lines. A line ended by <br> gets a
// backslash hard break when another line follows it.
func cleanParagraph(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank, broken := false, false
	for _, line := range lines {
		hard := strings.Contains(line, "\x00")
		line = strings.ReplaceAll(line, "\x00", "")
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" {
			blank = len(out) > 0
			broken = false
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		} else if broken {
			out[len(out)-1] += `\`
		}
		out = append(out, escapeLineStart(line))
		broken = hard
	}
	return strings.Join(out, "\n")
}

func escapeLineStart(line string) string {
	if blockMarkerStart.MatchString(line) {
		return `\` + line
	}
	return orderedStart.ReplaceAllString(line, `$1\$2$3`)
}

// cutHardBreak strips a trailing backslash hard break. An even run of
// trailing backslashes is escaped text, not a break.
func cutHardBreak(line string) (string, bool) {
	trimmed := strings.TrimRight(line, `\`)
	if (len(line)-len(trimmed))%2 == 0 {
		return line, false
	}
	return line[:len(line)-1], true
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	lines := strings.Split(s, "\n")
	for i := 0; i < len(lines)-1; i++ {
		lines[i], _ = cutHardBreak(lines[i])
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}

func collapse(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

func escapeText(s string) string {
	s = textEscaper.Replace(s)
	s = entityLike.ReplaceAllString(s, "&amp;$1;")
	return strings.ReplaceAll(s, "<", "&lt;")
}

var urlEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func escapeURL(s string) string {
	return urlEscaper.Replace(s)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Br {
		return "\n"
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
