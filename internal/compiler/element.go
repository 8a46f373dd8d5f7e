package compiler

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

type Attribute struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Element is a node of the tree handed to UI renderers. It is either a text leaf (Text
// set), a container (Children set) or an empty element such as an input.
type Element struct {
	Key        int         `json:"key" msgpack:"key"`
	Name       string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
	Children   []Element   `json:"children,omitempty" msgpack:"children,omitempty"`
	Text       *string     `json:"text,omitempty" msgpack:"text,omitempty"`
}

func (e *Element) IsText() bool {
	return e.Text != nil
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

type elementBuilder struct {
	roots []Element
	stack []Element
}

func (b *elementBuilder) add(e Element) {
	if n := len(b.stack); n > 0 {
		b.stack[n-1].Children = append(b.stack[n-1].Children, e)
	} else {
		b.roots = append(b.roots, e)
	}
}

func (b *elementBuilder) openTag(key int, name string, attrs []Attribute) {
	b.stack = append(b.stack, Element{
		Key:        key,
		Name:       name,
		Attributes: attrs,
	})
}

func (b *elementBuilder) closeTag(string) {
	n := len(b.stack)
	e := b.stack[n-1]
	b.stack = b.stack[:n-1]

	b.add(e)
}

func (b *elementBuilder) emptyTag(key int, name string, attrs []Attribute) {
	b.add(Element{
		Key:        key,
		Name:       name,
		Attributes: attrs,
	})
}

func (b *elementBuilder) text(key int, s string) {
	b.add(Element{
		Key:  key,
		Text: &s,
	})
}

type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// EncodeElements serializes an element tree for a renderer living on the other side of a
// process boundary.
func EncodeElements(w io.Writer, elements []Element, format Format) error {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(elements)

	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(elements)
	}

	return fmt.Errorf("unknown element format %q", format)
}

func DecodeElements(r io.Reader, format Format) ([]Element, error) {
	var elements []Element

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&elements); err != nil {
			return nil, fmt.Errorf("decode json elements: %w", err)
		}

	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&elements); err != nil {
			return nil, fmt.Errorf("decode msgpack elements: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown element format %q", format)
	}

	return elements, nil
}
