package dxfutils

import (
	"strings"

	"github.com/pkg/errors"
)

// Visit wraps one child during a walk. Repl starts as a one-element
// slice holding the child; a filter may splice in zero or more
// replacements and may stop the walker from descending.
type Visit struct {
	// Repl is the in-place substitution for the visited child.
	Repl []*Node
	// Parent is the node whose child list is being walked.
	Parent *Node
	// Skip stops the walker from descending into the child.
	Skip bool
	// Scratch is per-parent state shared by the pre and post filter.
	Scratch map[string]interface{}
}

// Node returns the visited child, or nil once it was spliced away.
func (v *Visit) Node() *Node {
	if len(v.Repl) != 1 {
		return nil
	}
	return v.Repl[0]
}

// Replace substitutes the child with the given nodes. Replacements are
// treated as output of the current pass and are not re-visited.
func (v *Visit) Replace(nodes ...*Node) {
	v.Repl = nodes
}

// VisitFunc inspects or rewrites one visited child.
type VisitFunc func(v *Visit) error

// Walk visits the children of n in order, invoking pre before and post
// after descending into each child. Splices adjust the index so that
// inserted nodes are not re-visited within the same pass.
func Walk(n *Node, pre, post VisitFunc) error {
	scratch := map[string]interface{}{}
	for i := 0; i < len(n.Children); {
		child := n.Children[i]
		v := &Visit{Repl: []*Node{child}, Parent: n, Scratch: scratch}

		if pre != nil {
			if err := pre(v); err != nil {
				return err
			}
			if len(v.Repl) != 1 || v.Repl[0] != child {
				n.Children = splice(n.Children, i, v.Repl)
				i += len(v.Repl)
				continue
			}
		}
		if !v.Skip {
			if err := Walk(child, pre, post); err != nil {
				return err
			}
		}
		if post != nil {
			v.Skip = false
			if err := post(v); err != nil {
				return err
			}
			if len(v.Repl) != 1 || v.Repl[0] != child {
				n.Children = splice(n.Children, i, v.Repl)
				i += len(v.Repl)
				continue
			}
		}
		i++
	}
	return nil
}

func splice(children []*Node, i int, repl []*Node) []*Node {
	out := make([]*Node, 0, len(children)-1+len(repl))
	out = append(out, children[:i]...)
	out = append(out, repl...)
	out = append(out, children[i+1:]...)
	return out
}

// canonical section order for a well-formed document.
var canonicalSections = []string{"HEADER", "CLASSES", "TABLES", "BLOCKS", "ENTITIES", "OBJECTS"}

// Canonicalize rewrites the root so that it carries exactly the
// canonical sections in order, merging duplicates by concatenating
// their children and inserting empty sections as needed. A missing
// HEADER gets a minimal one with $ACADVER. All stored end tags are
// dropped; the emitter synthesises them back. In strict mode a
// duplicate section is an error instead of a merge.
func Canonicalize(root *Node, strict bool) error {
	bySection := map[string]*Node{}
	var leftovers []*Node

	for _, c := range root.Children {
		if c.Name != "SECTION" {
			leftovers = append(leftovers, c)
			continue
		}
		name := c.Text("name")
		if prev, ok := bySection[name]; ok {
			if strict {
				return errors.Wrapf(ErrDuplicateSection, "section %s", name)
			}
			prev.Children = append(prev.Children, c.Children...)
			continue
		}
		bySection[name] = c
	}

	ordered := make([]*Node, 0, len(canonicalSections))
	for _, name := range canonicalSections {
		sec, ok := bySection[name]
		if !ok {
			sec = NewNode("SECTION")
			sec.Set("name", name)
		}
		ordered = append(ordered, sec)
	}
	// Sections outside the canonical six and stray nodes outside any
	// section do not survive canonicalisation.
	_ = leftovers

	header := ordered[0]
	if header.Child("$ACADVER") == nil {
		v := NewNode("$ACADVER")
		v.Set("text", "AC1015")
		header.Children = append([]*Node{v}, header.Children...)
	}

	root.Children = ordered
	root.End = nil
	dropEnds(root)
	return nil
}

func dropEnds(n *Node) {
	n.End = nil
	for _, c := range n.Children {
		dropEnds(c)
	}
}

// Strip removes everything a cutter does not care about: the CLASSES and
// TABLES sections, the contents of BLOCKS and OBJECTS, and every comment
// attribute.
func Strip(root *Node) {
	var kept []*Node
	for _, c := range root.Children {
		if c.Name == "SECTION" {
			switch c.Text("name") {
			case "CLASSES", "TABLES":
				continue
			case "BLOCKS", "OBJECTS":
				c.Children = nil
			}
		}
		kept = append(kept, c)
	}
	root.Children = kept
	stripComments(root)
}

func stripComments(n *Node) {
	delete(n.Attrs, "comment")
	for _, c := range n.Children {
		stripComments(c)
	}
}

// Predicate decides whether an entity node is kept by FilterEntities.
type Predicate func(name string, n *Node) bool

// ParseCriterion turns a textual filter criterion into a predicate. A
// bare entity type (optionally prefixed with "+" or "-") keeps or drops
// that type; a comma-separated set applies the same polarity to every
// member. The default polarity is exclude.
func ParseCriterion(criterion string) (Predicate, error) {
	include := false
	switch {
	case strings.HasPrefix(criterion, "+"):
		include = true
		criterion = criterion[1:]
	case strings.HasPrefix(criterion, "-"):
		criterion = criterion[1:]
	}
	if criterion == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "empty filter criterion")
	}
	set := map[string]bool{}
	for _, t := range strings.Split(criterion, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, errors.Wrapf(ErrInvalidArgument, "bad filter criterion %q", criterion)
		}
		set[t] = true
	}
	return func(name string, _ *Node) bool {
		return set[name] == include
	}, nil
}

// FilterEntities walks the BLOCKS children, the ENTITIES section and the
// OBJECTS section, removing every node the predicate rejects.
func FilterEntities(root *Node, keep Predicate) {
	filterChildren := func(n *Node) {
		var kept []*Node
		for _, c := range n.Children {
			if keep(c.Name, c) {
				kept = append(kept, c)
			}
		}
		n.Children = kept
	}
	if blocks := root.Section("BLOCKS"); blocks != nil {
		for _, b := range blocks.Children {
			filterChildren(b)
		}
	}
	if ents := root.Section("ENTITIES"); ents != nil {
		filterChildren(ents)
	}
	if objs := root.Section("OBJECTS"); objs != nil {
		filterChildren(objs)
	}
}

// FilterByLayer keeps (or drops) entities whose layer attribute is in
// the given set.
func FilterByLayer(root *Node, layers []string, include bool) {
	set := map[string]bool{}
	for _, l := range layers {
		set[l] = true
	}
	FilterEntities(root, func(_ string, n *Node) bool {
		return set[n.Text("layer")] == include
	})
}

// FilterByColor keeps (or drops) entities whose color attribute is in
// the given set.
func FilterByColor(root *Node, colors []string, include bool) {
	set := map[string]bool{}
	for _, c := range colors {
		set[strings.TrimSpace(c)] = true
	}
	FilterEntities(root, func(_ string, n *Node) bool {
		return set[strings.TrimSpace(n.Text("color"))] == include
	})
}
