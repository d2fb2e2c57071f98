package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the JSON type of a Node.
type Kind int

const (
	NullKind Kind = iota
	ObjectKind
	ArrayKind
	StringKind
	NumberKind
	BoolKind
)

// Node is an ordered JSON value. Object keys keep the order in which the
// descriptor declared them, which matters for generated samples and models.
type Node struct {
	Kind   Kind
	Str    string // string value, or the literal text of a number
	Bool   bool
	Items  []*Node
	keys   []string
	fields map[string]*Node
}

// NewObject returns an empty object node.
func NewObject() *Node { return &Node{Kind: ObjectKind, fields: map[string]*Node{}} }

// NewArray returns an array node holding items.
func NewArray(items ...*Node) *Node { return &Node{Kind: ArrayKind, Items: items} }

// NewString returns a string node.
func NewString(s string) *Node { return &Node{Kind: StringKind, Str: s} }

// NewNumber returns a number node from its literal text.
func NewNumber(lit string) *Node { return &Node{Kind: NumberKind, Str: lit} }

// NewBool returns a boolean node.
func NewBool(b bool) *Node { return &Node{Kind: BoolKind, Bool: b} }

// NewNull returns a null node.
func NewNull() *Node { return &Node{Kind: NullKind} }

// IsObject reports whether n is a non-nil object.
func (n *Node) IsObject() bool { return n != nil && n.Kind == ObjectKind }

// IsArray reports whether n is a non-nil array.
func (n *Node) IsArray() bool { return n != nil && n.Kind == ArrayKind }

// Keys returns object keys in declaration order.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	return n.keys
}

// Get returns the value stored under key, or nil.
func (n *Node) Get(key string) *Node {
	if !n.IsObject() {
		return nil
	}
	return n.fields[key]
}

// Has reports whether key is present.
func (n *Node) Has(key string) bool {
	if !n.IsObject() {
		return false
	}
	_, ok := n.fields[key]
	return ok
}

// Set stores v under key, appending key when it is new.
func (n *Node) Set(key string, v *Node) {
	if n.fields == nil {
		n.fields = map[string]*Node{}
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
}

// Delete removes key.
func (n *Node) Delete(key string) {
	if !n.IsObject() {
		return
	}
	if _, ok := n.fields[key]; !ok {
		return
	}
	delete(n.fields, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			break
		}
	}
}

// String returns the value of a string node under key, or "".
func (n *Node) String(key string) string {
	v := n.Get(key)
	if v == nil || v.Kind != StringKind {
		return ""
	}
	return v.Str
}

// Strings returns the string items of the array under key.
func (n *Node) Strings(key string) []string {
	v := n.Get(key)
	if !v.IsArray() {
		return nil
	}
	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		if it != nil && it.Kind == StringKind {
			out = append(out, it.Str)
		}
	}
	return out
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Kind: n.Kind, Str: n.Str, Bool: n.Bool}
	if len(n.Items) > 0 {
		cp.Items = make([]*Node, len(n.Items))
		for i, it := range n.Items {
			cp.Items[i] = it.Clone()
		}
	}
	if n.Kind == ObjectKind {
		cp.keys = append([]string(nil), n.keys...)
		cp.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			cp.fields[k] = v.Clone()
		}
	}
	return cp
}

// MarshalJSON writes n with object keys in declaration order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case ObjectKind:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := n.fields[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case ArrayKind:
		buf.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case StringKind:
		sb, err := json.Marshal(n.Str)
		if err != nil {
			return err
		}
		buf.Write(sb)
	case NumberKind:
		if !json.Valid([]byte(n.Str)) {
			return fmt.Errorf("invalid number literal %q", n.Str)
		}
		buf.WriteString(n.Str)
	case BoolKind:
		buf.WriteString(strconv.FormatBool(n.Bool))
	default:
		buf.WriteString("null")
	}
	return nil
}

// ParseNode decodes a JSON or YAML document into a Node tree. Input whose
// first non-space byte opens a JSON object or array is read as JSON; anything
// else goes through the YAML decoder.
func ParseNode(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return parseJSONNode(trimmed)
	}
	return parseYAMLNode(trimmed)
}

func parseJSONNode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return n, nil
}

func readJSONValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return NewString(v), nil
	case json.Number:
		return NewNumber(v.String()), nil
	case bool:
		return NewBool(v), nil
	case nil:
		return NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseYAMLNode(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("unexpected YAML structure: expected document node")
	}
	d := &yamlDecoder{budget: yamlNodeBudget(len(data))}
	return d.convert(doc.Content[0], 0)
}

// maxAliasDepth bounds alias nesting so self-referencing anchors fail
// instead of recursing forever.
const maxAliasDepth = 64

// Every alias use copies its anchor, so a small document can describe an
// exponentially large tree. The number of nodes built is capped in
// proportion to the input size.
const (
	minYAMLNodeBudget = 100_000
	yamlNodesPerByte  = 100
	maxYAMLNodeBudget = 10_000_000
)

func yamlNodeBudget(size int) int {
	budget := size * yamlNodesPerByte
	if budget < minYAMLNodeBudget {
		return minYAMLNodeBudget
	}
	if budget > maxYAMLNodeBudget {
		return maxYAMLNodeBudget
	}
	return budget
}

// ErrDocumentTooLarge is returned when alias expansion would build more
// nodes than the document size allows.
var ErrDocumentTooLarge = errors.New("document expands to too many nodes")

type yamlDecoder struct {
	budget int
	nodes  int
}

func (d *yamlDecoder) count(y *yaml.Node) error {
	d.nodes++
	if d.nodes > d.budget {
		return fmt.Errorf("line %d: %w (limit %d)", y.Line, ErrDocumentTooLarge, d.budget)
	}
	return nil
}

func (d *yamlDecoder) convert(y *yaml.Node, aliasDepth int) (*Node, error) {
	if y.Kind == yaml.AliasNode {
		if aliasDepth >= maxAliasDepth || y.Alias == nil {
			return nil, fmt.Errorf("line %d: alias nesting too deep", y.Line)
		}
		return d.convert(y.Alias, aliasDepth+1)
	}
	if err := d.count(y); err != nil {
		return nil, err
	}
	switch y.Kind {
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i < len(y.Content)-1; i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			if k.ShortTag() == "!!merge" {
				if err := d.merge(obj, v, aliasDepth); err != nil {
					return nil, err
				}
				continue
			}
			val, err := d.convert(v, aliasDepth)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := NewArray()
		for _, c := range y.Content {
			val, err := d.convert(c, aliasDepth)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarFromYAML(y)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", y.Line, y.Kind)
}

func (d *yamlDecoder) merge(dst *Node, src *yaml.Node, aliasDepth int) error {
	val, err := d.convert(src, aliasDepth)
	if err != nil {
		return err
	}
	var sources []*Node
	if val.IsArray() {
		sources = val.Items
	} else {
		sources = []*Node{val}
	}
	for _, s := range sources {
		for _, k := range s.Keys() {
			if !dst.Has(k) {
				dst.Set(k, s.Get(k))
			}
		}
	}
	return nil
}

func scalarFromYAML(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, err
		}
		return NewBool(b), nil
	case "!!int":
		return intFromYAML(y)
	case "!!float":
		if lit := strings.TrimSpace(y.Value); json.Valid([]byte(lit)) {
			return NewNumber(lit), nil
		}
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, err
		}
		lit := strconv.FormatFloat(f, 'f', -1, 64)
		if !json.Valid([]byte(lit)) {
			// .inf and .nan have no JSON form.
			return NewString(strings.TrimSpace(y.Value)), nil
		}
		return NewNumber(lit), nil
	}
	return NewString(y.Value), nil
}

// intFromYAML keeps decimal literals as written so integers beyond 64 bits
// survive, as they do when read from JSON. Signed, hex, octal and binary
// forms are normalized to decimal.
func intFromYAML(y *yaml.Node) (*Node, error) {
	lit := strings.TrimSpace(y.Value)
	if json.Valid([]byte(lit)) {
		return NewNumber(lit), nil
	}
	var i big.Int
	if _, ok := i.SetString(lit, 0); ok {
		return NewNumber(i.String()), nil
	}
	return nil, fmt.Errorf("line %d: invalid integer %q", y.Line, y.Value)
}
