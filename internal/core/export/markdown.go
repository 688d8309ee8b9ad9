package export

import (
	"html"
	"strings"
)

// TextToHTML converts the agent's lightly formatted contract text to HTML.
// Recognised per line: "# ", "## ", "### " headings, "- " and "* " bullets
// (indented by two spaces for a nested level) and lines wrapped in "**".
// Everything else becomes a paragraph.
func TextToHTML(text string) string {
	var b strings.Builder
	depth := 0

	setDepth := func(n int) {
		for depth < n {
			b.WriteString("<ul>")
			depth++
		}
		for depth > n {
			b.WriteString("</ul>")
			depth--
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "  - "), strings.HasPrefix(line, "  * "):
			setDepth(2)
			b.WriteString("<li>" + html.EscapeString(trimmed[2:]) + "</li>")
			continue
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			setDepth(1)
			b.WriteString("<li>" + html.EscapeString(trimmed[2:]) + "</li>")
			continue
		}
		setDepth(0)

		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "### "):
			b.WriteString("<h3>" + html.EscapeString(trimmed[4:]) + "</h3>")
		case strings.HasPrefix(trimmed, "## "):
			b.WriteString("<h2>" + html.EscapeString(trimmed[3:]) + "</h2>")
		case strings.HasPrefix(trimmed, "# "):
			b.WriteString("<h1>" + html.EscapeString(trimmed[2:]) + "</h1>")
		case len(trimmed) > 4 && strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**"):
			b.WriteString("<p><strong>" + html.EscapeString(trimmed[2:len(trimmed)-2]) + "</strong></p>")
		default:
			b.WriteString("<p>" + html.EscapeString(trimmed) + "</p>")
		}
		b.WriteString("\n")
	}
	setDepth(0)

	return b.String()
}

// LooksLikeHTML reports whether s already carries block-level markup.
func LooksLikeHTML(s string) bool {
	l := strings.ToLower(s)
	for _, tag := range []string{"<p", "<div", "<table", "<h1", "<h2", "<h3", "<ol", "<ul", "<br"} {
		if strings.Contains(l, tag) {
			return true
		}
	}
	return false
}
