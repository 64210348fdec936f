package dxfutils

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Value is a node attribute value: either a single scalar or an ordered
// list of scalars. Repeated group codes promote a scalar to a list.
// Values are kept as raw strings so that emitting a parsed document is
// lossless; numeric interpretation happens on read.
type Value struct {
	items []string
	list  bool
}

// Scalar returns a single-valued attribute value.
func Scalar(s string) Value {
	return Value{items: []string{s}}
}

// List returns a list-valued attribute value.
func List(items ...string) Value {
	return Value{items: items, list: true}
}

// IsList reports whether the value holds a list.
func (v Value) IsList() bool { return v.list }

// Items returns every scalar carried by the value, in order.
func (v Value) Items() []string { return v.items }

// First returns the first scalar, or the empty string for an empty value.
func (v Value) First() string {
	if len(v.items) == 0 {
		return ""
	}
	return v.items[0]
}

// Len returns the number of scalars carried by the value.
func (v Value) Len() int { return len(v.items) }

func (v Value) push(s string) Value {
	return Value{items: append(v.items, s), list: true}
}

// Node is an attributed tree node. Names beginning with "$" are header
// variables and serialise with group code 9, everything else with 0. The
// root of a document is a Node with an empty name.
type Node struct {
	Name     string
	Attrs    map[string]Value
	Children []*Node

	// End holds the paired terminator node (ENDSEC, ENDBLK, SEQEND, EOF)
	// when the parser attached one. Canonicalize drops it; the emitter
	// synthesises the canonical terminator in that case.
	End *Node
}

// NewNode returns a node with the given name and an empty attribute map.
func NewNode(name string) *Node {
	return &Node{Name: name, Attrs: map[string]Value{}}
}

// IsRoot reports whether the node is a document root.
func (n *Node) IsRoot() bool { return n.Name == "" }

// Get returns the attribute value for name.
func (n *Node) Get(name string) (Value, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Set replaces the attribute with a scalar value.
func (n *Node) Set(name, value string) {
	if n.Attrs == nil {
		n.Attrs = map[string]Value{}
	}
	n.Attrs[name] = Scalar(value)
}

// SetList replaces the attribute with a list value.
func (n *Node) SetList(name string, items ...string) {
	if n.Attrs == nil {
		n.Attrs = map[string]Value{}
	}
	n.Attrs[name] = List(items...)
}

// SetFloat replaces the attribute with a formatted scalar.
func (n *Node) SetFloat(name string, v float64) {
	n.Set(name, formatFloat(v))
}

// SetFloatList replaces the attribute with a formatted list.
func (n *Node) SetFloatList(name string, vals []float64) {
	items := make([]string, len(vals))
	for i, v := range vals {
		items[i] = formatFloat(v)
	}
	n.SetList(name, items...)
}

// SetInt replaces the attribute with a formatted integer scalar.
func (n *Node) SetInt(name string, v int) {
	n.Set(name, strconv.Itoa(v))
}

// add appends a value for a parsed attribute, promoting to a list when
// the attribute is already present.
func (n *Node) add(name, value string) {
	if n.Attrs == nil {
		n.Attrs = map[string]Value{}
	}
	if old, ok := n.Attrs[name]; ok {
		n.Attrs[name] = old.push(value)
	} else {
		n.Attrs[name] = Scalar(value)
	}
}

// Text returns the first scalar of the attribute, or "" when absent.
func (n *Node) Text(name string) string {
	v, ok := n.Attrs[name]
	if !ok {
		return ""
	}
	return v.First()
}

// Float parses the attribute as a single float.
func (n *Node) Float(name string) (float64, error) {
	v, ok := n.Attrs[name]
	if !ok {
		return 0, errors.Wrapf(ErrBadInput, "%s: missing attribute %q", n.Name, name)
	}
	return parseFloat(v.First())
}

// FloatDefault parses the attribute as a single float, returning def when
// the attribute is absent.
func (n *Node) FloatDefault(name string, def float64) (float64, error) {
	if _, ok := n.Attrs[name]; !ok {
		return def, nil
	}
	return n.Float(name)
}

// Floats parses every scalar of the attribute. An absent attribute
// yields an empty slice.
func (n *Node) Floats(name string) ([]float64, error) {
	v, ok := n.Attrs[name]
	if !ok {
		return nil, nil
	}
	out := make([]float64, 0, v.Len())
	for _, s := range v.Items() {
		f, err := parseFloat(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: attribute %q", n.Name, name)
		}
		out = append(out, f)
	}
	return out, nil
}

// Int parses the attribute as a single integer.
func (n *Node) Int(name string) (int, error) {
	v, ok := n.Attrs[name]
	if !ok {
		return 0, errors.Wrapf(ErrBadInput, "%s: missing attribute %q", n.Name, name)
	}
	i, err := strconv.Atoi(strings.TrimSpace(v.First()))
	if err != nil {
		return 0, errors.Wrapf(ErrBadInput, "%s: attribute %q: %q is not an integer", n.Name, name, v.First())
	}
	return i, nil
}

// IntDefault parses the attribute as an integer, returning def when absent.
func (n *Node) IntDefault(name string, def int) (int, error) {
	if _, ok := n.Attrs[name]; !ok {
		return def, nil
	}
	return n.Int(name)
}

// Child returns the first child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Section returns the SECTION child whose "name" attribute matches.
func (n *Node) Section(name string) *Node {
	for _, c := range n.Children {
		if c.Name == "SECTION" && c.Text("name") == name {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	c := &Node{Name: n.Name, Attrs: make(map[string]Value, len(n.Attrs))}
	for k, v := range n.Attrs {
		items := make([]string, len(v.items))
		copy(items, v.items)
		c.Attrs[k] = Value{items: items, list: v.list}
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Clone())
	}
	if n.End != nil {
		c.End = n.End.Clone()
	}
	return c
}

// generalAttrs are inherited onto every replacement node when a rewrite
// substitutes an entity with derived ones.
var generalAttrs = []string{
	"layer", "color", "linetype", "linetype_scale", "elevation",
	"thickness", "invisible", "space", "textstyle", "comment",
}

// inheritGeneral copies the general attributes of src onto dst, keeping
// any attribute dst already set.
func inheritGeneral(dst, src *Node) {
	for _, name := range generalAttrs {
		if _, ok := dst.Attrs[name]; ok {
			continue
		}
		if v, ok := src.Attrs[name]; ok {
			if dst.Attrs == nil {
				dst.Attrs = map[string]Value{}
			}
			dst.Attrs[name] = v
		}
	}
}

// Group-code alias tables. Ranges expand to an indexed family: the first
// code takes the bare base name, later ones append the index (x, x1, ...;
// int_32, int_32_1, ...).
type codeRange struct {
	start, count int
	base         string
}

var codeRanges = []codeRange{
	{10, 9, "x"},
	{20, 9, "y"},
	{30, 8, "z"},
	{40, 8, "float"},
	{50, 9, "angle"},
	{70, 9, "int"},
	{90, 9, "int_32"},
	{280, 10, "int_8"},
	{290, 10, "bool"},
}

var codeSingles = map[int]string{
	1:   "text",
	2:   "name",
	3:   "text2",
	4:   "text3",
	5:   "handle",
	105: "dimvar_handle",
	6:   "linetype",
	7:   "textstyle",
	8:   "layer",
	38:  "elevation",
	39:  "thickness",
	48:  "linetype_scale",
	60:  "invisible",
	62:  "color",
	66:  "entities_follow",
	67:  "space",
	100: "subclass",
	102: "control_string",
	210: "extrusion_direction_x",
	220: "extrusion_direction_y",
	230: "extrusion_direction_z",
	999: "comment",
}

var (
	codeToName = map[int]string{}
	nameToCode = map[string]int{}
)

func init() {
	for _, r := range codeRanges {
		for i := 0; i < r.count; i++ {
			codeToName[r.start+i] = indexedName(r.base, i)
		}
	}
	for code, name := range codeSingles {
		codeToName[code] = name
	}
	for code, name := range codeToName {
		nameToCode[name] = code
	}
}

func indexedName(base string, i int) string {
	if i == 0 {
		return base
	}
	if strings.Contains(base, "_") {
		return base + "_" + strconv.Itoa(i)
	}
	return base + strconv.Itoa(i)
}

// attrName maps a group code to its attribute name; unknown codes fall
// back to the verbatim "i<code>" form.
func attrName(code int) string {
	if name, ok := codeToName[code]; ok {
		return name
	}
	return "i" + strconv.Itoa(code)
}

// attrCode maps an attribute name back to its group code.
func attrCode(name string) (int, bool) {
	if code, ok := nameToCode[name]; ok {
		return code, true
	}
	if strings.HasPrefix(name, "i") {
		if code, err := strconv.Atoi(name[1:]); err == nil {
			return code, true
		}
	}
	return 0, false
}

// endNodes pairs each terminator name with the container it closes. The
// empty string stands for the document root.
var endNodes = map[string]string{
	"ENDSEC": "SECTION",
	"ENDTAB": "TABLE",
	"ENDBLK": "BLOCK",
	"SEQEND": "POLYLINE",
	"EOF":    "",
}

// endFor maps a container name to its canonical terminator.
var endFor = map[string]string{}

func init() {
	for end, start := range endNodes {
		endFor[start] = end
	}
}

// isContainer reports whether nodes with this name open a scope that a
// terminator closes.
func isContainer(name string) bool {
	_, ok := endFor[name]
	return ok && name != ""
}

// floatPattern is the accepted numeric grammar: optional sign, integer
// or fractional digits, optional exponent.
var floatPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// parseFloat parses a numeric attribute value, rejecting anything the
// grammar does not cover.
func parseFloat(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if !floatPattern.MatchString(t) {
		return 0, errors.Wrapf(ErrBadInput, "%q is not a number", s)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadInput, "%q is not a number", s)
	}
	return f, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
