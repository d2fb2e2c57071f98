package spec

import "strings"

// preprocessV2ForCompatibility rewrites non-compliant Swagger 2.0 operations in
// place so kin-openapi can convert them to v3:
//   - several body parameters are merged into one body parameter whose schema
//     is an object with a property per original parameter;
//   - body parameters mixed with formData ones become formData parameters and
//     the operation consumes multipart/form-data.
//
// It reports whether root was modified. Callers pass a clone.
func preprocessV2ForCompatibility(root *Node) bool {
	paths := root.Get("paths")
	modified := false
	for _, path := range paths.Keys() {
		item := paths.Get(path)
		for _, method := range item.Keys() {
			if _, ok := toHTTPMethod(method); !ok {
				continue
			}
			op := item.Get(method)
			params := op.Get("parameters")
			if !params.IsArray() || len(params.Items) == 0 {
				continue
			}

			bodyCount, hasFormData := 0, false
			for _, p := range params.Items {
				switch strings.ToLower(p.String("in")) {
				case "body":
					bodyCount++
				case "formdata":
					hasFormData = true
				}
			}
			if bodyCount == 0 {
				continue
			}

			if hasFormData {
				for i, p := range params.Items {
					if strings.EqualFold(p.String("in"), "body") {
						params.Items[i] = formDataFromBodyParam(p)
						modified = true
					}
				}
				consumes := op.Get("consumes")
				if !consumes.IsArray() {
					consumes = NewArray()
					op.Set("consumes", consumes)
				}
				if !containsString(consumes, multipartType) {
					consumes.Items = append(consumes.Items, NewString(multipartType))
				}
				continue
			}

			if bodyCount > 1 {
				props := NewObject()
				required := NewArray()
				rest := make([]*Node, 0, len(params.Items))
				for _, p := range params.Items {
					if !strings.EqualFold(p.String("in"), "body") {
						rest = append(rest, p)
						continue
					}
					name := p.String("name")
					if name == "" {
						name = "field"
					}
					schema := extractSchemaFromParam(p)
					if schema == nil {
						schema = NewObject()
						schema.Set("type", NewString("string"))
					}
					props.Set(name, schema)
					if boolOf(p.Get("required")) {
						required.Items = append(required.Items, NewString(name))
					}
				}
				bodySchema := NewObject()
				bodySchema.Set("type", NewString("object"))
				bodySchema.Set("properties", props)
				if len(required.Items) > 0 {
					bodySchema.Set("required", required)
				}
				merged := NewObject()
				merged.Set("in", NewString("body"))
				merged.Set("name", NewString("body"))
				merged.Set("schema", bodySchema)
				params.Items = append([]*Node{merged}, rest...)
				modified = true
			}
		}
	}
	return modified
}

func containsString(list *Node, want string) bool {
	for _, v := range list.Items {
		if v != nil && v.Kind == StringKind && v.Str == want {
			return true
		}
	}
	return false
}

func extractSchemaFromParam(p *Node) *Node {
	if sch := p.Get("schema"); sch.IsObject() {
		return sch
	}
	t := p.String("type")
	if t == "" {
		return nil
	}
	m := NewObject()
	m.Set("type", NewString(t))
	if it := p.Get("items"); it.IsObject() {
		m.Set("items", it)
	}
	if f := p.String("format"); f != "" {
		m.Set("format", NewString(f))
	}
	return m
}

func formDataFromBodyParam(p *Node) *Node {
	name := p.String("name")
	if name == "" {
		name = "field"
	}
	out := NewObject()
	out.Set("in", NewString("formData"))
	out.Set("name", NewString(name))
	if desc := p.String("description"); desc != "" {
		out.Set("description", NewString(desc))
	}
	if req := p.Get("required"); req != nil && req.Kind == BoolKind {
		out.Set("required", req)
	}

	src := p
	if sch := p.Get("schema"); sch.IsObject() {
		src = sch
	}
	typ := src.String("type")
	if typ == "" && src.Has("$ref") {
		// A referenced object has no formData form.
		typ = "string"
	}
	if typ == "" {
		typ = "string"
	}
	out.Set("type", NewString(typ))
	if it := src.Get("items"); it.IsObject() {
		out.Set("items", it)
	}
	if f := src.String("format"); f != "" {
		out.Set("format", NewString(f))
	}
	return out
}
