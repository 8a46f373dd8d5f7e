package compiler

import (
	"fmt"
	"html"
	"io"
)

var selfClosingTags = map[string]struct{}{
	"br":    {},
	"hr":    {},
	"img":   {},
	"input": {},
	"wbr":   {},
}

// outputWriter is the HTML sink. Write errors are sticky: after the first one nothing
// else is written and the error is reported once the walk is over.
type outputWriter struct {
	w   io.Writer
	err error
}

func (w *outputWriter) WriteLiteralUnescaped(str string) {
	if w.err != nil {
		return
	}

	_, w.err = io.WriteString(w.w, str)
}

func (w *outputWriter) WriteLiteralUnescapedf(format string, a ...any) {
	w.WriteLiteralUnescaped(fmt.Sprintf(format, a...))
}

func (w *outputWriter) WriteLiteralEscaped(str string) {
	w.WriteLiteralUnescaped(html.EscapeString(str))
}

func (w *outputWriter) writeTagStart(name string, attrs []Attribute) {
	w.WriteLiteralUnescapedf("<%s", name)

	for _, attr := range attrs {
		w.WriteLiteralUnescapedf(` %s="%s"`, attr.Name, html.EscapeString(attr.Value))
	}
}

func (w *outputWriter) openTag(_ int, name string, attrs []Attribute) {
	w.writeTagStart(name, attrs)
	w.WriteLiteralUnescaped(">")
}

func (w *outputWriter) closeTag(name string) {
	w.WriteLiteralUnescapedf("</%s>", name)
}

func (w *outputWriter) emptyTag(_ int, name string, attrs []Attribute) {
	w.writeTagStart(name, attrs)

	if _, ok := selfClosingTags[name]; ok {
		w.WriteLiteralUnescaped("/>")
	} else {
		w.WriteLiteralUnescapedf("></%s>", name)
	}
}

func (w *outputWriter) text(_ int, s string) {
	w.WriteLiteralEscaped(s)
}
