package dxfutils

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// The XML mirror maps every tree node onto one element: the node name
// becomes the tag with a leading "$" rewritten to "_", attributes become
// XML attributes, and list values are space-joined under the attribute
// name with an "-array" suffix. The document root uses the tag below.
const xmlRootTag = "dxf"

// WriteXML serialises the tree as its XML mirror. Text content carries
// only indentation.
func WriteXML(w io.Writer, root *Node) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, `<?xml version="1.0" encoding="UTF-8"?>`); err != nil {
		return err
	}
	if err := writeXMLNode(bw, root, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func xmlTag(name string) string {
	if name == "" {
		return xmlRootTag
	}
	if strings.HasPrefix(name, "$") {
		return "_" + name[1:]
	}
	return name
}

func writeXMLNode(w *bufio.Writer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s<%s", indent, xmlTag(n.Name)); err != nil {
		return err
	}

	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := n.Attrs[name]
		attr := name
		text := v.First()
		if v.IsList() {
			attr = name + "-array"
			text = strings.Join(v.Items(), " ")
		}
		var esc strings.Builder
		if err := xml.EscapeText(&esc, []byte(text)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, " %s=\"%s\"", attr, esc.String()); err != nil {
			return err
		}
	}

	if len(n.Children) == 0 {
		_, err := fmt.Fprintln(w, "/>")
		return err
	}
	if _, err := fmt.Fprintln(w, ">"); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeXMLNode(w, c, depth+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s</%s>\n", indent, xmlTag(n.Name))
	return err
}

// ReadXML parses the XML mirror back into a tree.
func ReadXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "xml: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := NewNode(nodeNameFromTag(t.Name.Local))
			if len(stack) == 0 {
				if t.Name.Local != xmlRootTag {
					return nil, errors.Wrapf(ErrParse, "xml: unexpected document element %q", t.Name.Local)
				}
				n.Name = ""
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			for _, a := range t.Attr {
				if name, ok := strings.CutSuffix(a.Name.Local, "-array"); ok {
					n.SetList(name, strings.Fields(a.Value)...)
				} else {
					n.Set(a.Name.Local, a.Value)
				}
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, errors.Wrap(ErrParse, "xml: unexpected text content")
			}
		}
	}
	if root == nil {
		return nil, errors.Wrap(ErrParse, "xml: empty document")
	}
	return root, nil
}

func nodeNameFromTag(tag string) string {
	if strings.HasPrefix(tag, "_") {
		return "$" + tag[1:]
	}
	return tag
}
