package spec

import (
	"html"
	"strings"
)

const emptyInlineModel = `<strong>Inline Model {<br>}</strong>`

// renderModel returns an HTML fragment describing the shape of schema. name
// labels an object model; when empty an "Inline Model<N>" name is generated.
// rendered holds the model names already emitted in this traversal and breaks
// reference cycles.
func (s *session) renderModel(schema *Node, name string, rendered map[string]bool) string {
	if schema == nil {
		return ""
	}
	if props := schema.Get("properties"); props.IsObject() {
		return s.renderObject(schema, props, name, rendered)
	}
	if schema.Has("$ref") {
		return s.renderRef(schema, rendered)
	}
	switch schema.String("type") {
	case "array":
		label, sub := s.typeLabel(schema.Get("items"), rendered)
		return "<strong>Array [" + label + "]</strong><br><br>" + sub
	case "object":
		return emptyInlineModel
	}
	return ""
}

func (s *session) renderObject(schema, props *Node, name string, rendered map[string]bool) string {
	if name == "" {
		name = s.nextInlineName()
	}
	rendered[name] = true
	required := map[string]bool{}
	for _, r := range schema.Strings("required") {
		required[r] = true
	}

	var b, subs strings.Builder
	b.WriteString("<div><strong>" + html.EscapeString(name) + " {</strong>")
	keys := props.Keys()
	for i, prop := range keys {
		p := props.Get(prop)
		label, sub := s.propertyLabel(p, rendered)
		subs.WriteString(sub)

		b.WriteString(`<div class="pad"><strong>` + html.EscapeString(prop) + `</strong> (<span class="type">` + label + `</span>`)
		if !required[prop] {
			b.WriteString(", <em>optional</em>")
		}
		b.WriteString(")")
		if desc := p.String("description"); desc != "" {
			b.WriteString(": " + string(s.trust.html(desc)))
		}
		if enum := p.Get("enum"); enum.IsArray() {
			b.WriteString(" = " + enumLabel(enum))
		}
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("</div>")
	}
	b.WriteString("<strong>}</strong></div>")
	return b.String() + subs.String()
}

func (s *session) renderRef(schema *Node, rendered map[string]bool) string {
	ref := schema.String("$ref")
	name := className(ref)
	if rendered[name] {
		return ""
	}
	def := Resolve(s.root, schema)
	if def == nil {
		s.warnMissingRef(ref, "model")
		return ""
	}
	rendered[name] = true
	frag, ok := s.models[ref]
	if !ok {
		frag = s.renderModel(def, name, rendered)
		s.models[ref] = frag
	}
	return frag
}

// propertyLabel returns the type label for a property and the nested model
// fragment it introduces, if any.
func (s *session) propertyLabel(p *Node, rendered map[string]bool) (string, string) {
	if p.Get("properties").IsObject() || p.Has("$ref") {
		return s.typeLabel(p, rendered)
	}
	if p.String("type") == "array" {
		label, sub := s.typeLabel(p.Get("items"), rendered)
		return "Array[" + label + "]", sub
	}
	return html.EscapeString(TypeOf(p)), ""
}

// typeLabel names a schema used as a property or item type: nested objects
// get a fresh inline model, refs their class name, scalars their canonical type.
func (s *session) typeLabel(schema *Node, rendered map[string]bool) (string, string) {
	switch {
	case schema == nil:
		return "", ""
	case schema.Get("properties").IsObject():
		name := s.nextInlineName()
		return html.EscapeString(name), s.renderModel(schema, name, rendered)
	case schema.Has("$ref"):
		return html.EscapeString(className(schema.String("$ref"))), s.renderModel(schema, "", rendered)
	}
	return html.EscapeString(TypeOf(schema)), ""
}

func enumLabel(enum *Node) string {
	parts := make([]string, 0, len(enum.Items))
	for _, it := range enum.Items {
		if it != nil && it.Kind == StringKind {
			parts = append(parts, html.EscapeString(it.Str))
			continue
		}
		raw, err := it.MarshalJSON()
		if err != nil {
			continue
		}
		parts = append(parts, html.EscapeString(string(raw)))
	}
	return strings.Join(parts, " or ")
}
