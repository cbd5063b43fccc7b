// Package parser provides content extraction from fetched pages.
package parser

import (
	"regexp"
	"strings"
)

var (
	// Script and style bodies carry no analyzable text.
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	// Block-level closers become paragraph breaks so sentence
	// boundaries survive tag stripping.
	blockRe = regexp.MustCompile(`(?i)</(p|div|section|article|h[1-6]|li|tr|blockquote)>|<br\s*/?>`)
	tagRe   = regexp.MustCompile(`<[^>]*>`)

	multiSpaceRe   = regexp.MustCompile(`[ \t]+`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// entities the models trip over most; anything rarer passes through.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&mdash;", "-",
	"&ndash;", "-",
)

// HTMLToText reduces an HTML page to readable plain text: scripts and
// styles dropped, block boundaries kept as newlines, tags stripped,
// common entities decoded, whitespace collapsed. It is a fallback for
// when no conversion sidecar is available, not a full HTML parser.
func HTMLToText(html string) string {
	text := scriptRe.ReplaceAllString(html, "")
	text = styleRe.ReplaceAllString(text, "")
	text = blockRe.ReplaceAllString(text, "\n\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	return CollapseWhitespace(text)
}

// CollapseWhitespace normalizes runs of spaces and blank lines while
// preserving paragraph breaks.
func CollapseWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
