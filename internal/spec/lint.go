package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// Issue is one problem found by Lint.
type Issue struct {
	Message     string `json:"message"`
	JSONPointer string `json:"pointer,omitempty"`
}

// Lint checks a Swagger 2.0 document: local references must resolve, and the
// document must survive conversion to OpenAPI 3 and its validation. Problems
// with the document are returned as issues; the error is reserved for
// documents that cannot be checked at all.
func Lint(ctx context.Context, doc *Document) ([]Issue, error) {
	if doc == nil || doc.Root == nil {
		return nil, &SpecError{Code: InputError, Message: "spec: nil document"}
	}
	if doc.Version != 2 {
		return nil, &SpecError{Code: UnsupportedError, Message: ErrUnsupported.Error(), Location: doc.URL, Cause: ErrUnsupported}
	}

	issues := unresolvedRefs(doc.Root)
	if len(issues) > 0 {
		// The converter resolves references and would fail on the first one.
		return issues, nil
	}

	root := doc.Root.Clone()
	preprocessV2ForCompatibility(root)
	raw, err := root.MarshalJSON()
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("encode spec: %v", err), Location: doc.URL, Cause: err}
	}
	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode v2: %v", err), Location: doc.URL, Cause: err}
	}
	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: doc.URL, Cause: err}
	}
	if err := openapi3.NewLoader().ResolveRefsIn(v3, nil); err != nil {
		issues = append(issues, Issue{Message: err.Error(), JSONPointer: extractJSONPointer(err)})
		return issues, nil
	}
	if err := v3.Validate(ctx); err != nil {
		if me, ok := err.(openapi3.MultiError); ok {
			for _, e := range me {
				se := mapValidateErr(e, doc.URL)
				issues = append(issues, Issue{Message: se.Message, JSONPointer: se.JSONPointer})
			}
		} else {
			se := mapValidateErr(err, doc.URL)
			issues = append(issues, Issue{Message: se.Message, JSONPointer: se.JSONPointer})
		}
	}
	return issues, nil
}

// unresolvedRefs reports every local "$ref" in root that does not resolve.
func unresolvedRefs(root *Node) []Issue {
	seen := map[string]bool{}
	var walk func(n *Node)
	walk = func(n *Node) {
		switch {
		case n.IsObject():
			if ref := n.String("$ref"); ref != "" {
				seen[ref] = true
			}
			for _, k := range n.Keys() {
				walk(n.Get(k))
			}
		case n.IsArray():
			for _, it := range n.Items {
				walk(it)
			}
		}
	}
	walk(root)

	var issues []Issue
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		// Remote refs are left to the converter.
		if strings.HasPrefix(ref, "#") && lookupRef(root, ref) == nil {
			issues = append(issues, Issue{Message: fmt.Sprintf("unresolved reference %q", ref), JSONPointer: ref})
		}
	}
	return issues
}
