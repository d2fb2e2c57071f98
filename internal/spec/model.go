package spec

// View model produced by Parse and consumed by the printers, the HTML
// emitter and the HTTP service.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

type ViewModel struct {
	Infos     Infos              `json:"infos"`
	Resources []*Resource        `json:"resources"`
	Form      map[int]*FormState `json:"form"`
}

type Infos struct {
	Title          string        `json:"title"`
	Description    SafeHTML      `json:"description,omitempty"`
	Version        string        `json:"version"`
	TermsOfService string        `json:"termsOfService,omitempty"`
	Scheme         string        `json:"scheme"`
	Host           string        `json:"host"`
	BasePath       string        `json:"basePath"`
	Contact        *Contact      `json:"contact,omitempty"`
	License        *License      `json:"license,omitempty"`
	ExternalDocs   *ExternalDocs `json:"externalDocs,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
}

type License struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type ExternalDocs struct {
	Description SafeHTML `json:"description,omitempty"`
	URL         string   `json:"url"`
}

// Resource groups the operations sharing a first tag.
type Resource struct {
	Name         string        `json:"name"`
	Description  SafeHTML      `json:"description,omitempty"`
	ExternalDocs *ExternalDocs `json:"externalDocs,omitempty"`
	Open         bool          `json:"open"`
	Operations   []*Operation  `json:"operations"`
}

type Operation struct {
	ID            int                  `json:"id"`
	OperationID   string               `json:"operationId,omitempty"`
	Method        HttpMethod           `json:"httpMethod"`
	Path          string               `json:"path"`
	Summary       string               `json:"summary,omitempty"`
	Description   SafeHTML             `json:"description,omitempty"`
	Tags          []string             `json:"tags"`
	Deprecated    bool                 `json:"deprecated,omitempty"`
	Consumes      []string             `json:"consumes,omitempty"`
	Produces      []string             `json:"produces,omitempty"`
	Parameters    []*Parameter         `json:"parameters"`
	ResponseClass *Response            `json:"responseClass,omitempty"`
	Responses     map[string]*Response `json:"responses,omitempty"`
	HasResponses  bool                 `json:"hasResponses"`
	Open          bool                 `json:"open"`
}

type Parameter struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	In          string      `json:"in"` // query|path|header|formData|body
	Type        string      `json:"type,omitempty"`
	Subtype     string      `json:"subtype,omitempty"`
	Description SafeHTML    `json:"description,omitempty"`
	Required    bool        `json:"required"`
	Enum        *Node       `json:"enum,omitempty"`
	Default     *Node       `json:"default,omitempty"`
	Schema      *SchemaView `json:"schema,omitempty"`
}

type Response struct {
	Status      string      `json:"status"`
	Description SafeHTML    `json:"description,omitempty"`
	Schema      *SchemaView `json:"schema,omitempty"`
}

// SchemaView carries what a console shows for a body schema: a sample
// payload and the nested model description.
type SchemaView struct {
	Ref   string   `json:"$ref,omitempty"`
	JSON  string   `json:"json,omitempty"`
	Model SafeHTML `json:"model,omitempty"`
}

// FormState seeds the "try it out" form of one operation.
type FormState struct {
	ContentType  string           `json:"contentType,omitempty"`
	ResponseType string           `json:"responseType"`
	Values       map[string]*Node `json:"values"`
}
