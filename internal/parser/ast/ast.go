package ast

import (
	"github.com/pipe01/civmark/internal/lexer"
)

type Pos lexer.Location

func (p Pos) Position() lexer.Location {
	return lexer.Location(p)
}

type Node interface {
	Position() lexer.Location
}

// Container is implemented by every node that holds child nodes.
type Container interface {
	Node
	Children() []Node
}

type NodeText struct {
	Pos

	Text string
}

type NodeParagraph struct {
	Pos

	Nodes []Node
}

type NodeStrong struct {
	Pos

	Nodes []Node
}

type NodeUnderlined struct {
	Pos

	Nodes []Node
}

type NodeQuotation struct {
	Pos

	Nodes []Node
}

type NodeHighlight struct {
	Pos

	Nodes []Node
}

type NodeSidenote struct {
	Pos

	Nodes []Node
}

type NodeMarginnote struct {
	Pos

	Nodes []Node
}

type NodeLink struct {
	Pos

	URL   string
	Nodes []Node
}

type NodeListItem struct {
	Pos

	Nodes []Node
}

type NodeOrderedList struct {
	Pos

	// Start is the number written on the first item
	Start int
	Nodes []Node
}

type NodeUnorderedList struct {
	Pos

	Nodes []Node
}

type NodeBlockquote struct {
	Pos

	Nodes []Node
}

// NodeCodeblock holds the code exactly as written between the fences.
type NodeCodeblock struct {
	Pos

	Language string
	Code     string
}

type NodeImage struct {
	Pos

	Src string
	Alt string
}

type NodeHorizontalRule struct {
	Pos
}

func (n *NodeParagraph) Children() []Node     { return n.Nodes }
func (n *NodeStrong) Children() []Node        { return n.Nodes }
func (n *NodeUnderlined) Children() []Node    { return n.Nodes }
func (n *NodeQuotation) Children() []Node     { return n.Nodes }
func (n *NodeHighlight) Children() []Node     { return n.Nodes }
func (n *NodeSidenote) Children() []Node      { return n.Nodes }
func (n *NodeMarginnote) Children() []Node    { return n.Nodes }
func (n *NodeLink) Children() []Node          { return n.Nodes }
func (n *NodeListItem) Children() []Node      { return n.Nodes }
func (n *NodeOrderedList) Children() []Node   { return n.Nodes }
func (n *NodeUnorderedList) Children() []Node { return n.Nodes }
func (n *NodeBlockquote) Children() []Node    { return n.Nodes }

// Walk calls fn for every node in depth-first order, stopping early if fn returns false.
func Walk(nodes []Node, fn func(Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}

		if c, ok := n.(Container); ok {
			if !Walk(c.Children(), fn) {
				return false
			}
		}
	}

	return true
}
