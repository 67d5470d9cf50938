// Package sanitize turns raw generative model output into text that is safe
// to place verbatim inside an HTML <pre> block.
//
// The pipeline decodes HTML entities, rewrites fenced code blocks as plain
// "CODE BLOCK:" sections, trims the result, collapses runs of blank lines and
// finally escapes &, < and >. The stage order matters: escaping runs last so
// that nothing decoded earlier survives as live markup.
//
// Sanitize is a display filter, not a codec. Running it on its own output
// escapes the escape sequences again.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/jmylchreest/geminichat/pkg/cleaner"
)

// CodeBlockLabel is the marker line that introduces a reformatted code block.
const CodeBlockLabel = "CODE BLOCK:"

const fence = "```"

// maxDecodePasses bounds entity decoding of nested encodings such as "&amp;amp;lt;".
const maxDecodePasses = 8

var pipeline = cleaner.NewChain(
	cleaner.Func("decode-entities", DecodeEntities),
	cleaner.Func("code-blocks", FormatCodeBlocks),
	cleaner.Func("trim", Trim),
	cleaner.Func("collapse-blank-lines", CollapseBlankLines),
	cleaner.Func("escape-html", EscapeHTML),
)

// Pipeline returns the sanitizer stages as a cleaner chain.
func Pipeline() *cleaner.ChainCleaner {
	return pipeline
}

// Sanitize runs every stage over raw and returns display-ready text.
// Empty input yields the empty string.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// Stages are FuncCleaners, which never fail.
	out, _ := pipeline.Clean(raw)
	return out
}

// SanitizePtr is Sanitize for optional values; nil yields the empty string.
func SanitizePtr(raw *string) string {
	if raw == nil {
		return ""
	}
	return Sanitize(*raw)
}

// DecodeEntities replaces named and numeric character references with the
// characters they stand for. Decoding repeats until the text is stable, so
// double-encoded input is restored fully.
func DecodeEntities(s string) string {
	for i := 0; i < maxDecodePasses && strings.IndexByte(s, '&') >= 0; i++ {
		decoded := html.UnescapeString(s)
		if decoded == s {
			break
		}
		s = decoded
	}
	return s
}

// FormatCodeBlocks replaces every ``` fenced region with a labelled plain-text
// block. Fences pair up left to right; an opening fence without a partner is
// left untouched.
func FormatCodeBlocks(s string) string {
	if !strings.Contains(s, fence) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 32)

	rest := s
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			break
		}
		body := rest[open+len(fence):]
		end := strings.Index(body, fence)
		if end < 0 {
			break
		}

		b.WriteString(rest[:open])
		b.WriteString("\n\n")
		b.WriteString(CodeBlockLabel)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(stripLanguageTag(body[:end])))
		b.WriteString("\n\n")

		rest = body[end+len(fence):]
	}
	b.WriteString(rest)
	return b.String()
}

// stripLanguageTag drops an info string such as "js" or "c++" that directly
// follows the opening fence and runs to the end of its line.
func stripLanguageTag(code string) string {
	nl := strings.IndexByte(code, '\n')
	if nl <= 0 {
		return code
	}
	tag := strings.TrimRight(code[:nl], "\r")
	if tag == "" || strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
		return code
	}
	return code[nl+1:]
}

// Trim removes leading and trailing whitespace, including byte order marks.
func Trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// CollapseBlankLines reduces every run of three or more newlines to two.
func CollapseBlankLines(s string) string {
	if !strings.Contains(s, "\n\n\n") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	run := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			run++
			if run > 2 {
				continue
			}
		} else {
			run = 0
		}
		b.WriteByte(c)
	}
	return b.String()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML replaces &, < and > with &amp;, &lt; and &gt;.
// Replacement is single-pass, so the ampersands it introduces are never
// escaped again.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
