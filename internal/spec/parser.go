package spec

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	openapi3 "github.com/getkin/kin-openapi/openapi3"
)

// Parse turns a Swagger 2.0 document into a ViewModel. Documents of any other
// version yield an error matching ErrUnsupported. Every other failure,
// including a canceled ctx, is reported as a single ParseError and no partial
// model is returned. doc is never modified.
func Parse(ctx context.Context, doc *Document, opts ...ParseOption) (vm *ViewModel, err error) {
	if doc == nil || doc.Root == nil {
		return nil, &SpecError{Code: InputError, Message: "spec: nil document"}
	}
	if doc.Version != 2 {
		return nil, &SpecError{Code: UnsupportedError, Message: ErrUnsupported.Error(), Location: doc.URL, Cause: ErrUnsupported}
	}
	cfg := newParseConfig(opts)

	defer func() {
		if r := recover(); r != nil {
			vm = nil
			err = parseFailure(fmt.Errorf("%v", r), doc.URL)
		}
	}()

	vm, err = parseSwagger2(ctx, doc, cfg)
	if err != nil {
		return nil, parseFailure(err, doc.URL)
	}
	return vm, nil
}

func parseFailure(err error, location string) *SpecError {
	return &SpecError{
		Code:     ParseError,
		Message:  "failed to parse descriptor: " + err.Error(),
		Location: location,
		Cause:    err,
	}
}

func parseSwagger2(ctx context.Context, doc *Document, cfg *parseConfig) (*ViewModel, error) {
	root := doc.Root.Clone()
	s := newSession(root, cfg)

	meta, err := decodeMetadata(root)
	if err != nil {
		return nil, err
	}
	infos, defaults := normalizeInfos(meta, doc.URL, s.trust)
	resources, index := seedResources(meta.Tags, s.trust)
	form := map[int]*FormState{}

	paths := root.Get("paths")
	for _, path := range paths.Keys() {
		item := paths.Get(path)
		if !item.IsObject() {
			continue
		}
		pathParams := item.Get("parameters")
		item.Delete("parameters")

		for _, key := range item.Keys() {
			method, ok := toHTTPMethod(key)
			if !ok {
				continue
			}
			opNode := item.Get(key)
			if !opNode.IsObject() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tags := nonEmpty(opNode.Strings("tags"))
			if len(tags) == 0 {
				tags = []string{defaultTag}
			}
			if !cfg.allow(method, path, tags) {
				continue
			}

			op, state, err := s.parseOperation(method, path, opNode, pathParams, tags, defaults)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			form[op.ID] = state

			res, ok := index[tags[0]]
			if !ok {
				res = &Resource{Name: tags[0]}
				index[res.Name] = res
				resources = append(resources, res)
			}
			res.Operations = append(res.Operations, op)
		}
	}

	markOpen(resources, cfg.deepLink)
	resources = pruneAndSort(resources)

	return &ViewModel{Infos: infos, Resources: resources, Form: form}, nil
}

// seedResources creates one resource per declared tag, or a single open
// "default" resource when the descriptor declares none.
func seedResources(tags openapi3.Tags, trust trustPolicy) ([]*Resource, map[string]*Resource) {
	index := map[string]*Resource{}
	if len(tags) == 0 {
		res := &Resource{Name: defaultTag, Open: true}
		index[defaultTag] = res
		return []*Resource{res}, index
	}
	resources := make([]*Resource, 0, len(tags))
	for _, t := range tags {
		if t == nil {
			continue
		}
		if _, dup := index[t.Name]; dup {
			continue
		}
		res := &Resource{Name: t.Name, Description: trust.html(t.Description)}
		if t.ExternalDocs != nil {
			res.ExternalDocs = &ExternalDocs{Description: trust.html(t.ExternalDocs.Description), URL: t.ExternalDocs.URL}
		}
		index[t.Name] = res
		resources = append(resources, res)
	}
	return resources, index
}

func (s *session) parseOperation(method HttpMethod, path string, opNode, pathParams *Node, tags []string, defaults descriptorDefaults) (*Operation, *FormState, error) {
	s.nextOperationID++
	op := &Operation{
		ID:          s.nextOperationID,
		OperationID: safeStr(opNode.String("operationId")),
		Method:      method,
		Path:        path,
		Summary:     safeStr(opNode.String("summary")),
		Description: s.trust.html(opNode.String("description")),
		Tags:        tags,
		Deprecated:  boolOf(opNode.Get("deprecated")),
		Produces:    nonEmpty(opNode.Strings("produces")),
		Consumes:    nonEmpty(opNode.Strings("consumes")),
		Parameters:  []*Parameter{},
	}
	if len(op.Produces) == 0 {
		op.Produces = defaults.produces
	}
	declaredConsumes := len(op.Consumes) > 0
	if !declaredConsumes {
		op.Consumes = defaults.consumes
	}

	state := &FormState{ResponseType: "*/*", Values: map[string]*Node{}}
	if len(op.Produces) > 0 {
		state.ResponseType = op.Produces[0]
	}

	params := s.mergeParameters(opNode.Get("parameters"), pathParams, method, path)
	hasForm, hasFile, hasBody := false, false, false
	for _, pn := range params {
		p, err := s.parseParameter(pn)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", pn.String("name"), err)
		}
		switch p.In {
		case "body":
			hasBody = true
		case "formData":
			hasForm = true
			if p.Type == "file" {
				hasFile = true
			}
		}
		if p.Default != nil {
			state.Values[p.Name] = p.Default
		} else {
			state.Values[p.Name] = NewString("")
		}
		op.Parameters = append(op.Parameters, p)
	}

	if hasForm && !declaredConsumes {
		if hasFile {
			op.Consumes = []string{multipartType}
		} else {
			op.Consumes = []string{formMediaType}
		}
	}
	if (hasBody || hasForm) && len(op.Consumes) > 0 {
		state.ContentType = op.Consumes[0]
	}

	if err := s.parseResponses(opNode.Get("responses"), op); err != nil {
		return nil, nil, err
	}
	return op, state, nil
}

// mergeParameters resolves operation and path-level parameters and merges
// them. An operation parameter replaces a path parameter with the same
// (name, in); the remaining path parameters follow the operation's own.
func (s *session) mergeParameters(opParams, pathParams *Node, method HttpMethod, path string) []*Node {
	where := string(method) + " " + path
	resolve := func(list *Node) []*Node {
		if !list.IsArray() {
			return nil
		}
		out := make([]*Node, 0, len(list.Items))
		for _, it := range list.Items {
			p := Resolve(s.root, it)
			if p == nil {
				s.warnMissingRef(it.String("$ref"), where)
				continue
			}
			if !p.IsObject() {
				continue
			}
			out = append(out, p)
		}
		return out
	}

	merged := resolve(opParams)
	seen := make(map[string]struct{}, len(merged))
	for _, p := range merged {
		seen[paramKey(p.String("in"), p.String("name"))] = struct{}{}
	}
	for _, p := range resolve(pathParams) {
		if _, overridden := seen[paramKey(p.String("in"), p.String("name"))]; overridden {
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

func (s *session) parseParameter(pn *Node) (*Parameter, error) {
	s.nextParamID++
	p := &Parameter{
		ID:          s.nextParamID,
		Name:        safeStr(pn.String("name")),
		In:          safeStr(pn.String("in")),
		Type:        TypeOf(pn),
		Description: s.trust.html(pn.String("description")),
		Required:    boolOf(pn.Get("required")),
		Enum:        pn.Get("enum"),
		Default:     pn.Get("default"),
	}
	if items := pn.Get("items"); items.IsObject() {
		if enum := items.Get("enum"); enum.IsArray() {
			p.Enum = enum
			p.Default = items.Get("default")
		}
	}
	if !p.Enum.IsArray() {
		p.Enum = nil
	}
	p.Subtype = p.Type
	if p.Enum != nil {
		p.Subtype = "enum"
	}
	if schema := pn.Get("schema"); schema != nil {
		view, err := s.schemaView(schema)
		if err != nil {
			return nil, err
		}
		p.Schema = view
	}
	return p, nil
}

// parseResponses attaches response schemas and promotes the 200 response (or
// 201 when there is no 200) to the operation's ResponseClass.
func (s *session) parseResponses(responses *Node, op *Operation) error {
	if !responses.IsObject() {
		return nil
	}
	op.Responses = map[string]*Response{}
	for _, code := range responses.Keys() {
		rn := Resolve(s.root, responses.Get(code))
		if rn == nil {
			s.warnMissingRef(responses.Get(code).String("$ref"), string(op.Method)+" "+op.Path)
			continue
		}
		r := &Response{Status: code, Description: s.trust.html(rn.String("description"))}
		if schema := rn.Get("schema"); schema != nil {
			view, err := s.schemaView(schema)
			if err != nil {
				return fmt.Errorf("response %s: %w", code, err)
			}
			r.Schema = view
		}
		op.Responses[code] = r
	}
	for _, code := range []string{"200", "201"} {
		if r, ok := op.Responses[code]; ok {
			op.ResponseClass = r
			delete(op.Responses, code)
			break
		}
	}
	op.HasResponses = len(op.Responses) > 0
	if !op.HasResponses {
		op.Responses = nil
	}
	return nil
}

func (s *session) schemaView(schema *Node) (*SchemaView, error) {
	sample, err := s.sampleJSON(schema)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("schema rendered", slog.String("ref", schema.String("$ref")), slog.Int("sampleBytes", len(sample)))
	return &SchemaView{
		Ref:   schema.String("$ref"),
		JSON:  sample,
		Model: SafeHTML(s.renderModel(schema, "", map[string]bool{})),
	}, nil
}

// markOpen flags the operations and resources selected by a deep link.
func markOpen(resources []*Resource, link string) {
	if link == "" {
		return
	}
	for _, res := range resources {
		if link == res.Name {
			res.Open = true
		}
		for _, op := range res.Operations {
			op.Open = link == res.Name+"*" ||
				link == strconv.Itoa(op.ID) ||
				(op.OperationID != "" && link == op.OperationID)
			if op.Open {
				res.Open = true
			}
		}
	}
}

// pruneAndSort drops resources without operations and orders the rest by name.
func pruneAndSort(resources []*Resource) []*Resource {
	kept := make([]*Resource, 0, len(resources))
	for _, res := range resources {
		if len(res.Operations) > 0 {
			kept = append(kept, res)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	return kept
}

func boolOf(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case BoolKind:
		return n.Bool
	case StringKind:
		b, _ := strconv.ParseBool(n.Str)
		return b
	}
	return false
}
