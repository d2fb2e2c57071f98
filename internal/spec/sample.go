package spec

import (
	"bytes"
	"encoding/json"
)

// sample builds an example value for schema. inflight holds the refs being
// generated on the current path; a ref met again while in flight closes a
// cycle and yields the cached value or an empty placeholder.
func (s *session) sample(schema *Node, inflight map[string]bool) *Node {
	if schema == nil {
		return nil
	}
	if v := schema.Get("default"); v != nil {
		return v
	}
	if v := schema.Get("example"); v != nil {
		return v
	}
	if props := schema.Get("properties"); props.IsObject() {
		obj := NewObject()
		for _, name := range props.Keys() {
			if v := s.sample(props.Get(name), inflight); v != nil {
				obj.Set(name, v)
			}
		}
		return obj
	}
	if schema.Has("$ref") {
		ref := schema.String("$ref")
		if cached, ok := s.samples[ref]; ok {
			return cached
		}
		def := Resolve(s.root, schema)
		if def == nil {
			s.warnMissingRef(ref, "sample")
			return nil
		}
		if inflight[ref] {
			return placeholder(def)
		}
		inflight[ref] = true
		v := s.sample(def, inflight)
		delete(inflight, ref)
		s.samples[ref] = v
		return v
	}
	switch schema.String("type") {
	case "array":
		item := s.sample(schema.Get("items"), inflight)
		if item == nil {
			item = NewNull()
		}
		return NewArray(item)
	case "object":
		return NewObject()
	}
	return SampleValue(TypeOf(schema), s.now)
}

// placeholder stands in for a definition whose sample is still being built.
func placeholder(def *Node) *Node {
	switch {
	case def.Get("properties").IsObject(), def.String("type") == "object":
		return NewObject()
	case def.String("type") == "array":
		return NewArray()
	}
	return NewNull()
}

// sampleJSON renders the sample for schema as indented JSON, or "" when the
// schema has no sample.
func (s *session) sampleJSON(schema *Node) (string, error) {
	v := s.sample(schema, map[string]bool{})
	if v == nil {
		return "", nil
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
