package dxfutils

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parser reads a DXF group-code stream into an attributed tree.
type Parser struct {
	// Warn receives tolerated oddities such as unmatched end nodes.
	Warn WarnFunc
}

// Parse reads the whole stream and returns the document root. The root
// carries the top-level nodes as children; the closing EOF is attached
// as its end tag. A stream without EOF is a parse error.
func (p *Parser) Parse(r io.Reader) (*Node, error) {
	flat, err := p.scan(r)
	if err != nil {
		return nil, err
	}
	return p.resolve(flat)
}

// scan performs the linear sweep over (code, value) pairs, producing the
// flat node list with attributes attached.
func (p *Parser) scan(r io.Reader) ([]*Node, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		flat []*Node
		cur  *Node
		line int
	)
	for sc.Scan() {
		line++
		codeText := strings.TrimSpace(strings.TrimSuffix(sc.Text(), "\r"))
		if !sc.Scan() {
			return nil, errors.Wrapf(ErrParse, "line %d: group code %q without a value line", line, codeText)
		}
		line++
		value := strings.TrimSuffix(sc.Text(), "\r")

		code, err := strconv.Atoi(codeText)
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "line %d: non-numeric group code %q", line-1, codeText)
		}

		switch code {
		case 0, 9:
			cur = NewNode(strings.TrimSpace(value))
			flat = append(flat, cur)
		default:
			if cur == nil {
				// Attributes before the first node belong to the root.
				cur = NewNode("")
				flat = append(flat, cur)
			}
			cur.add(attrName(code), value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading input")
	}
	return flat, nil
}

// resolve scans the flat list forward, closing containers on their end
// nodes and nesting the nodes in between as children.
func (p *Parser) resolve(flat []*Node) (*Node, error) {
	root := NewNode("")
	stack := []*Node{root}
	sawEOF := false

	for _, n := range flat {
		if n.IsRoot() {
			// A synthetic holder for leading attributes.
			for k, v := range n.Attrs {
				root.Attrs[k] = v
			}
			continue
		}
		if starter, isEnd := endNodes[n.Name]; isEnd {
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Name == starter {
					idx = i
					break
				}
			}
			if idx < 0 {
				p.Warn.warnf("unmatched end node %s dropped", n.Name)
				continue
			}
			stack[idx].End = n
			stack = stack[:idx]
			if n.Name == "EOF" {
				sawEOF = true
				stack = append(stack, root)
			}
			continue
		}

		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
		if isContainer(n.Name) {
			stack = append(stack, n)
		}
	}
	if !sawEOF {
		return nil, errors.Wrap(ErrParse, "missing EOF")
	}
	return root, nil
}

// Parse is a convenience wrapper using a default Parser.
func Parse(r io.Reader) (*Node, error) {
	return (&Parser{}).Parse(r)
}

// Emit serialises the tree back into a DXF group-code stream. Attributes
// are written in ascending group-code order; coordinate families in the
// 10-range pull their 20-range and 30-range partners so that each point
// is written as a consecutive triple.
func Emit(w io.Writer, root *Node) error {
	bw := bufio.NewWriter(w)
	if err := emitNode(bw, root); err != nil {
		return err
	}
	return bw.Flush()
}

func emitPair(w *bufio.Writer, code int, value string) error {
	_, err := fmt.Fprintf(w, "%d\n%s\n", code, value)
	return err
}

func emitNode(w *bufio.Writer, n *Node) error {
	if !n.IsRoot() {
		code := 0
		if strings.HasPrefix(n.Name, "$") {
			code = 9
		}
		if err := emitPair(w, code, n.Name); err != nil {
			return err
		}
	}
	if err := emitAttrs(w, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := emitNode(w, c); err != nil {
			return err
		}
	}
	return emitEnd(w, n)
}

func emitEnd(w *bufio.Writer, n *Node) error {
	if n.End != nil {
		if err := emitPair(w, 0, n.End.Name); err != nil {
			return err
		}
		return emitAttrs(w, n.End)
	}
	if end, ok := endFor[n.Name]; ok {
		return emitPair(w, 0, end)
	}
	return nil
}

func emitAttrs(w *bufio.Writer, n *Node) error {
	type attr struct {
		code int
		name string
	}
	attrs := make([]attr, 0, len(n.Attrs))
	for name := range n.Attrs {
		code, ok := attrCode(name)
		if !ok {
			return errors.Wrapf(ErrBadInput, "%s: attribute %q has no group code", n.Name, name)
		}
		attrs = append(attrs, attr{code, name})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].code < attrs[j].code })

	for _, a := range attrs {
		switch {
		case a.code >= 10 && a.code <= 18:
			if err := emitPoints(w, n, a.code); err != nil {
				return err
			}
		case a.code >= 20 && a.code <= 28 || a.code >= 30 && a.code <= 37:
			// Emitted as part of the matching 10-range family; a
			// partner-less family is written standalone.
			xcode := a.code - 10
			if a.code >= 30 {
				xcode = a.code - 20
			}
			if _, ok := n.Attrs[attrName(xcode)]; ok {
				continue
			}
			if err := emitPlain(w, n, a.code, a.name); err != nil {
				return err
			}
		default:
			if err := emitPlain(w, n, a.code, a.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func emitPlain(w *bufio.Writer, n *Node, code int, name string) error {
	for _, item := range n.Attrs[name].Items() {
		if err := emitPair(w, code, item); err != nil {
			return err
		}
	}
	return nil
}

// emitPoints writes the x/y/z triples of one coordinate family
// interleaved per point.
func emitPoints(w *bufio.Writer, n *Node, xcode int) error {
	xs := n.Attrs[attrName(xcode)].Items()
	ys := n.Attrs[attrName(xcode+10)].Items()
	var zs []string
	if name := attrName(xcode + 20); xcode+20 <= 37 {
		zs = n.Attrs[name].Items()
	}
	for i, x := range xs {
		if err := emitPair(w, xcode, x); err != nil {
			return err
		}
		if i < len(ys) {
			if err := emitPair(w, xcode+10, ys[i]); err != nil {
				return err
			}
		}
		if i < len(zs) {
			if err := emitPair(w, xcode+20, zs[i]); err != nil {
				return err
			}
		}
	}
	// Trailing partners without an x are still written so that no
	// value is lost on round-trip.
	for i := len(xs); i < len(ys); i++ {
		if err := emitPair(w, xcode+10, ys[i]); err != nil {
			return err
		}
	}
	for i := len(xs); i < len(zs); i++ {
		if err := emitPair(w, xcode+20, zs[i]); err != nil {
			return err
		}
	}
	return nil
}
