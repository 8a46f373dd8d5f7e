package grammar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown grammar file format")

// Grammar holds the literal delimiters recognized by the lexer. Block markers are only
// matched at the start of a line, inline markers anywhere.
type Grammar struct {
	// Inline spans closed by repeating the same delimiter
	Strong    string `yaml:"strong" toml:"strong"`
	Underline string `yaml:"underline" toml:"underline"`
	Quotation string `yaml:"quotation" toml:"quotation"`
	Highlight string `yaml:"highlight" toml:"highlight"`

	// Inline spans closed by ParenClose
	Sidenote   string `yaml:"sidenote" toml:"sidenote"`
	Marginnote string `yaml:"marginnote" toml:"marginnote"`
	Link       string `yaml:"link" toml:"link"`

	ParenOpen  string `yaml:"paren_open" toml:"paren_open"`
	ParenClose string `yaml:"paren_close" toml:"paren_close"`

	CodeFence        string `yaml:"code_fence" toml:"code_fence"`
	BlockquoteStart  string `yaml:"blockquote_start" toml:"blockquote_start"`
	BlockquoteEnd    string `yaml:"blockquote_end" toml:"blockquote_end"`
	Rule             string `yaml:"rule" toml:"rule"`
	Image            string `yaml:"image" toml:"image"`
	UnorderedMarker  string `yaml:"unordered_marker" toml:"unordered_marker"`
	OrderedSeparator string `yaml:"ordered_separator" toml:"ordered_separator"`
}

func Default() *Grammar {
	return &Grammar{
		Strong:    "**",
		Underline: "__",
		Quotation: `"`,
		Highlight: "^^",

		Sidenote:   ":side(",
		Marginnote: ":margin(",
		Link:       ":link(",

		ParenOpen:  "(",
		ParenClose: ")",

		CodeFence:        "```",
		BlockquoteStart:  ">>>",
		BlockquoteEnd:    "<<<",
		Rule:             "---",
		Image:            ":img(",
		UnorderedMarker:  "-",
		OrderedSeparator: ".",
	}
}

// Load reads a grammar file on top of the defaults, so a file only needs to name the
// delimiters it changes. The format is picked from the file extension.
func Load(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar file: %w", err)
	}

	g := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, g); err != nil {
			return nil, fmt.Errorf("decode yaml grammar: %w", err)
		}

	case ".toml":
		if _, err := toml.Decode(string(data), g); err != nil {
			return nil, fmt.Errorf("decode toml grammar: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, filepath.Ext(path))
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grammar %q: %w", path, err)
	}

	return g, nil
}

type field struct {
	name  string
	value string
}

func (g *Grammar) inlineFields() []field {
	return []field{
		{"strong", g.Strong},
		{"underline", g.Underline},
		{"quotation", g.Quotation},
		{"highlight", g.Highlight},
		{"sidenote", g.Sidenote},
		{"marginnote", g.Marginnote},
		{"link", g.Link},
		{"paren_open", g.ParenOpen},
		{"paren_close", g.ParenClose},
	}
}

func (g *Grammar) blockFields() []field {
	return []field{
		{"code_fence", g.CodeFence},
		{"blockquote_start", g.BlockquoteStart},
		{"blockquote_end", g.BlockquoteEnd},
		{"rule", g.Rule},
		{"image", g.Image},
		{"unordered_marker", g.UnorderedMarker},
		{"ordered_separator", g.OrderedSeparator},
	}
}

func (g *Grammar) Validate() error {
	all := append(g.inlineFields(), g.blockFields()...)

	for _, f := range all {
		if f.value == "" {
			return fmt.Errorf("delimiter %q is empty", f.name)
		}
		if strings.ContainsAny(f.value, " \t\r\n") {
			return fmt.Errorf("delimiter %q contains whitespace", f.name)
		}
	}

	inline := g.inlineFields()
	for i, f := range inline {
		dup := slices.IndexFunc(inline[i+1:], func(o field) bool {
			return o.value == f.value
		})
		if dup >= 0 {
			return fmt.Errorf("delimiters %q and %q are both %q", f.name, inline[i+1+dup].name, f.value)
		}
	}

	if g.BlockquoteStart == g.BlockquoteEnd {
		return fmt.Errorf("blockquote start and end are both %q", g.BlockquoteStart)
	}
	if strings.IndexFunc(g.OrderedSeparator, isDigit) >= 0 {
		return errors.New("ordered list separator can't contain digits")
	}

	return nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
