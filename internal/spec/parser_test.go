package spec

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

const petsYAML = `
swagger: "2.0"
info:
  title: Pets
  version: "1.0"
paths:
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      responses:
        200:
          description: ok
          schema:
            type: array
            items:
              type: string
`

const storeYAML = `
swagger: "2.0"
info:
  title: Store
  description: <script>alert(1)</script><b>bold</b>
  version: "2.1"
  contact:
    name: Ops
    email: ops@example.com
host: store.example.com
basePath: /v1
schemes: [https, http]
tags:
  - name: zebra
    description: Stripes
  - name: alpha
  - name: unused
parameters:
  Limit:
    name: limit
    in: query
    type: integer
    default: 20
definitions:
  Pet:
    type: object
    required: [id]
    properties:
      id:
        type: integer
        format: int64
      name:
        type: string
paths:
  /pets/{id}:
    parameters:
      - name: id
        in: path
        type: string
        description: from path
      - $ref: '#/parameters/Limit'
    get:
      tags: [zebra]
      operationId: getPet
      parameters:
        - name: id
          in: path
          required: true
          type: integer
          format: int64
          description: from operation
      responses:
        201:
          description: created
        404:
          description: missing
    put:
      tags: [zebra]
      parameters:
        - name: body
          in: body
          schema:
            $ref: '#/definitions/Pet'
      responses:
        200:
          description: ok
          schema:
            $ref: '#/definitions/Pet'
        201:
          description: created
  /pets:
    get:
      tags: [alpha]
      operationId: findPets
      parameters:
        - name: status
          in: query
          type: array
          items:
            type: string
            enum: [available, sold]
            default: available
      responses:
        200:
          description: ok
          schema:
            type: array
            items:
              $ref: '#/definitions/Pet'
    post:
      tags: [alpha]
      parameters:
        - name: name
          in: formData
          type: string
      responses:
        default:
          description: whatever
  /upload:
    post:
      tags: [alpha, files]
      parameters:
        - name: file
          in: formData
          type: file
      responses:
        204:
          description: done
  /misc:
    get:
      responses:
        200:
          description: ok
`

func parse(t *testing.T, src, location string, opts ...ParseOption) *ViewModel {
	t.Helper()
	opts = append([]ParseOption{WithClock(fixedClock), WithLogger(discardLogger())}, opts...)
	vm, err := Parse(context.Background(), mustDoc(t, src, location), opts...)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return vm
}

func findOp(t *testing.T, vm *ViewModel, method HttpMethod, path string) *Operation {
	t.Helper()
	for _, res := range vm.Resources {
		for _, op := range res.Operations {
			if op.Method == method && op.Path == path {
				return op
			}
		}
	}
	t.Fatalf("operation %s %s not found", method, path)
	return nil
}

func resourceNames(vm *ViewModel) []string {
	names := make([]string, 0, len(vm.Resources))
	for _, r := range vm.Resources {
		names = append(names, r.Name)
	}
	return names
}

func TestParse_ListPetsEndToEnd(t *testing.T) {
	t.Parallel()
	vm := parse(t, petsYAML, "https://api.example.com/v2/swagger.yaml")

	if vm.Infos.Title != "Pets" || vm.Infos.Version != "1.0" {
		t.Fatalf("infos: %+v", vm.Infos)
	}
	if vm.Infos.Scheme != "https" || vm.Infos.Host != "api.example.com" {
		t.Fatalf("scheme/host should come from the load URL: %+v", vm.Infos)
	}
	if got := resourceNames(vm); len(got) != 1 || got[0] != "pets" {
		t.Fatalf("resources: %v", got)
	}
	op := vm.Resources[0].Operations[0]
	if op.ID != 1 || op.OperationID != "listPets" || op.Method != GET || op.Path != "/pets" {
		t.Fatalf("operation: %+v", op)
	}
	if op.ResponseClass == nil || op.ResponseClass.Status != "200" || op.ResponseClass.Schema == nil {
		t.Fatalf("responseClass: %+v", op.ResponseClass)
	}
	var sample []string
	if err := json.Unmarshal([]byte(op.ResponseClass.Schema.JSON), &sample); err != nil {
		t.Fatalf("sample json: %v", err)
	}
	if len(sample) != 1 || sample[0] != "string" {
		t.Fatalf("sample: %v", sample)
	}
	if op.HasResponses || op.Responses != nil {
		t.Fatalf("200 should be promoted, leaving no other responses: %+v", op.Responses)
	}
	if len(op.Produces) != 1 || op.Produces[0] != "application/json" {
		t.Fatalf("produces default: %v", op.Produces)
	}
	state := vm.Form[op.ID]
	if state == nil || state.ResponseType != "application/json" || state.ContentType != "" {
		t.Fatalf("form state: %+v", state)
	}
}

func TestParse_InfosAndSanitizing(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "http://elsewhere.example.org/spec.yaml")
	in := vm.Infos
	if in.Scheme != "https" || in.Host != "store.example.com" || in.BasePath != "/v1" {
		t.Fatalf("declared scheme/host/basePath should win: %+v", in)
	}
	if in.Contact == nil || in.Contact.Email != "ops@example.com" {
		t.Fatalf("contact: %+v", in.Contact)
	}
	if strings.Contains(string(in.Description), "<script") || !strings.Contains(string(in.Description), "<b>bold</b>") {
		t.Fatalf("description not sanitized: %q", in.Description)
	}

	trusted := parse(t, storeYAML, "", WithTrusted(true))
	if !strings.Contains(string(trusted.Infos.Description), "<script>") {
		t.Fatalf("trusted description should pass through: %q", trusted.Infos.Description)
	}
}

func TestParse_ResourcesPrunedAndSorted(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "")
	got := resourceNames(vm)
	want := []string{"alpha", "default", "zebra"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("resources: got %v, want %v", got, want)
	}
	for _, r := range vm.Resources {
		if len(r.Operations) == 0 {
			t.Fatalf("resource %q kept without operations", r.Name)
		}
		if r.Name == "zebra" && r.Description != "Stripes" {
			t.Fatalf("declared tag description lost: %q", r.Description)
		}
		if r.Name == "default" && r.Open {
			t.Fatalf("on-the-fly default resource should start closed")
		}
	}
	// First tag groups the operation.
	if op := findOp(t, vm, POST, "/upload"); len(op.Tags) != 2 || op.Tags[0] != "alpha" {
		t.Fatalf("upload tags: %v", op.Tags)
	}
}

func TestParse_SortsUndeclaredTags(t *testing.T) {
	t.Parallel()
	src := `
swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /z:
    get:
      tags: [zebra]
      responses: {200: {description: ok}}
  /a:
    get:
      tags: [alpha]
      responses: {200: {description: ok}}
`
	vm := parse(t, src, "")
	if got := resourceNames(vm); strings.Join(got, ",") != "alpha,zebra" {
		t.Fatalf("resources: %v", got)
	}
	// Ids follow document order, not resource order.
	if findOp(t, vm, GET, "/z").ID != 1 || findOp(t, vm, GET, "/a").ID != 2 {
		t.Fatalf("operation ids should follow path order")
	}
}

func TestParse_DefaultResourceWithoutDeclaredTags(t *testing.T) {
	t.Parallel()
	src := `
swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /ping:
    get:
      responses: {200: {description: ok}}
`
	vm := parse(t, src, "")
	if len(vm.Resources) != 1 || vm.Resources[0].Name != "default" || !vm.Resources[0].Open {
		t.Fatalf("expected a single open default resource, got %+v", vm.Resources)
	}
}

func TestParse_ParameterMerge(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "")
	op := findOp(t, vm, GET, "/pets/{id}")
	if len(op.Parameters) != 2 {
		t.Fatalf("parameters: %+v", op.Parameters)
	}
	id, limit := op.Parameters[0], op.Parameters[1]
	if id.Name != "id" || id.In != "path" || id.Type != "long" || id.Description != "from operation" || !id.Required {
		t.Fatalf("operation parameter should win: %+v", id)
	}
	if limit.Name != "limit" || limit.In != "query" || limit.Type != "integer" {
		t.Fatalf("path parameter via $ref: %+v", limit)
	}
	if id.ID == limit.ID {
		t.Fatalf("parameter ids must be unique")
	}
	values := vm.Form[op.ID].Values
	if got := mustJSON(t, values["limit"]); got != "20" {
		t.Fatalf("limit default: %s", got)
	}
	if got := mustJSON(t, values["id"]); got != `""` {
		t.Fatalf("id value: %s", got)
	}

	// The put operation inherits both path parameters.
	put := findOp(t, vm, PUT, "/pets/{id}")
	if len(put.Parameters) != 3 || put.Parameters[1].Description != "from path" {
		t.Fatalf("put parameters: %+v", put.Parameters)
	}
}

func TestParse_ResponsePromotion(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "")

	get := findOp(t, vm, GET, "/pets/{id}")
	if get.ResponseClass == nil || get.ResponseClass.Status != "201" {
		t.Fatalf("201 should be promoted without a 200: %+v", get.ResponseClass)
	}
	if !get.HasResponses || len(get.Responses) != 1 || get.Responses["404"] == nil {
		t.Fatalf("responses: %+v", get.Responses)
	}

	put := findOp(t, vm, PUT, "/pets/{id}")
	if put.ResponseClass.Status != "200" || put.Responses["201"] == nil {
		t.Fatalf("200 should win over 201: class=%+v rest=%+v", put.ResponseClass, put.Responses)
	}

	upload := findOp(t, vm, POST, "/upload")
	if upload.ResponseClass != nil || !upload.HasResponses || upload.Responses["204"] == nil {
		t.Fatalf("upload responses: class=%+v rest=%+v", upload.ResponseClass, upload.Responses)
	}
}

func TestParse_BodySchemaAndContentTypes(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "")

	put := findOp(t, vm, PUT, "/pets/{id}")
	body := put.Parameters[0]
	if body.In != "body" || body.Schema == nil || body.Schema.Ref != "#/definitions/Pet" {
		t.Fatalf("body parameter: %+v", body)
	}
	if body.Schema.JSON != "{\n  \"id\": 0,\n  \"name\": \"string\"\n}" {
		t.Fatalf("body sample: %q", body.Schema.JSON)
	}
	if !strings.Contains(string(body.Schema.Model), "<strong>Pet {</strong>") {
		t.Fatalf("body model: %s", body.Schema.Model)
	}
	if ct := vm.Form[put.ID].ContentType; ct != "application/json" {
		t.Fatalf("body content type: %q", ct)
	}

	form := findOp(t, vm, POST, "/pets")
	if ct := vm.Form[form.ID].ContentType; ct != "application/x-www-form-urlencoded" {
		t.Fatalf("form content type: %q", ct)
	}
	upload := findOp(t, vm, POST, "/upload")
	if ct := vm.Form[upload.ID].ContentType; ct != "multipart/form-data" {
		t.Fatalf("upload content type: %q", ct)
	}

	list := findOp(t, vm, GET, "/pets")
	if !strings.HasPrefix(string(list.ResponseClass.Schema.Model), "<strong>Array [Pet]</strong>") {
		t.Fatalf("list model: %s", list.ResponseClass.Schema.Model)
	}
}

func TestParse_EnumItemsLifted(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "")
	op := findOp(t, vm, GET, "/pets")
	p := op.Parameters[0]
	if p.Subtype != "enum" || p.Type != "array" {
		t.Fatalf("status parameter: %+v", p)
	}
	if got := mustJSON(t, p.Enum); got != `["available","sold"]` {
		t.Fatalf("enum: %s", got)
	}
	if got := mustJSON(t, vm.Form[op.ID].Values["status"]); got != `"available"` {
		t.Fatalf("form default: %s", got)
	}
}

func TestParse_DeepLink(t *testing.T) {
	t.Parallel()
	cases := []struct {
		link     string
		openOps  []string
		openRess []string
	}{
		{"getPet", []string{"get /pets/{id}"}, []string{"zebra"}},
		{"zebra*", []string{"get /pets/{id}", "put /pets/{id}"}, []string{"zebra"}},
		{"3", []string{"get /pets"}, []string{"alpha"}},
		{"alpha", nil, []string{"alpha"}},
		{"nothing", nil, nil},
	}
	for _, tc := range cases {
		vm := parse(t, storeYAML, "", WithDeepLink(tc.link))
		var ops, ress []string
		for _, r := range vm.Resources {
			if r.Open {
				ress = append(ress, r.Name)
			}
			for _, op := range r.Operations {
				if op.Open {
					ops = append(ops, string(op.Method)+" "+op.Path)
				}
			}
		}
		if strings.Join(ops, "|") != strings.Join(tc.openOps, "|") {
			t.Errorf("link %q: open ops %v, want %v", tc.link, ops, tc.openOps)
		}
		if strings.Join(ress, "|") != strings.Join(tc.openRess, "|") {
			t.Errorf("link %q: open resources %v, want %v", tc.link, ress, tc.openRess)
		}
	}
}

func TestParse_Filters(t *testing.T) {
	t.Parallel()
	vm := parse(t, storeYAML, "", WithMethods([]HttpMethod{"POST"}))
	for _, r := range vm.Resources {
		for _, op := range r.Operations {
			if op.Method != POST {
				t.Fatalf("unexpected %s %s", op.Method, op.Path)
			}
		}
	}

	vm = parse(t, storeYAML, "", WithIncludeTags([]string{"files"}))
	if got := resourceNames(vm); strings.Join(got, ",") != "alpha" || len(vm.Resources[0].Operations) != 1 {
		t.Fatalf("include tags: %v", got)
	}

	vm = parse(t, storeYAML, "", WithExcludeTags([]string{"zebra", "alpha"}))
	if got := resourceNames(vm); strings.Join(got, ",") != "default" {
		t.Fatalf("exclude tags: %v", got)
	}

	vm = parse(t, storeYAML, "", WithPathPatterns([]string{`^/pets/`}))
	if got := resourceNames(vm); strings.Join(got, ",") != "zebra" {
		t.Fatalf("path patterns: %v", got)
	}

	vm = parse(t, storeYAML, "", WithPathPatterns([]string{`(`}))
	if len(vm.Resources) != 0 {
		t.Fatalf("invalid pattern should match nothing: %v", resourceNames(vm))
	}
}

func TestParse_Unsupported(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		`{"openapi": "3.0.0", "info": {"title": "x", "version": "1"}, "paths": {}}`,
		`{"swaggerVersion": "1.2", "apis": []}`,
	} {
		_, err := Parse(context.Background(), mustDoc(t, src, ""))
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
		var se *SpecError
		if !errors.As(err, &se) || se.Code != UnsupportedError {
			t.Fatalf("expected UnsupportedError, got %v", err)
		}
	}
	if _, err := Parse(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestParse_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vm, err := Parse(ctx, mustDoc(t, petsYAML, ""))
	if vm != nil {
		t.Fatalf("no partial model expected")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ParseError {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled cause, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to parse descriptor") {
		t.Fatalf("message: %q", err.Error())
	}
}

func TestParse_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, storeYAML, "")
	before := mustJSON(t, doc.Root)
	parse(t, storeYAML, "")
	if _, err := Parse(context.Background(), doc, WithLogger(discardLogger())); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if after := mustJSON(t, doc.Root); after != before {
		t.Fatalf("document was modified by Parse")
	}
}

func TestParse_MissingDefinitionIsNotFatal(t *testing.T) {
	t.Parallel()
	src := `
swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /x:
    post:
      parameters:
        - {name: body, in: body, schema: {$ref: '#/definitions/Gone'}}
        - {$ref: '#/parameters/Gone'}
      responses:
        200:
          description: ok
          schema: {$ref: '#/definitions/Gone'}
`
	vm := parse(t, src, "")
	op := findOp(t, vm, POST, "/x")
	if len(op.Parameters) != 1 {
		t.Fatalf("unresolved parameter should be skipped: %+v", op.Parameters)
	}
	if op.Parameters[0].Schema.JSON != "" || op.Parameters[0].Schema.Model != "" {
		t.Fatalf("missing definition should yield empty views: %+v", op.Parameters[0].Schema)
	}
}

func TestParse_ConcurrentParsesAreIndependent(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, storeYAML, "")
	want, err := json.Marshal(parse(t, storeYAML, ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vm, err := Parse(context.Background(), doc, WithClock(fixedClock), WithLogger(discardLogger()))
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = json.Marshal(vm)
		}(i)
	}
	wg.Wait()
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("parse %d: %v", i, errs[i])
		}
		if string(results[i]) != string(want) {
			t.Fatalf("parse %d differs from a sequential parse", i)
		}
	}
}

func TestParse_IgnoresNonSwaggerMethodKeys(t *testing.T) {
	t.Parallel()
	vm := parse(t, `
swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /ping:
    trace:
      responses: {200: {description: ok}}
    x-internal: true
    get:
      responses: {200: {description: ok}}
`, "")
	if len(vm.Resources) != 1 || len(vm.Resources[0].Operations) != 1 {
		t.Fatalf("expected a single operation, got %+v", vm.Resources)
	}
	if op := vm.Resources[0].Operations[0]; op.Method != GET || op.ID != 1 {
		t.Fatalf("operation: %+v", op)
	}
}
