package htmlemitter

import (
	"bytes"
	"html/template"
	"sort"
	"strings"

	"github.com/mark3labs/swaggerview/internal/spec"
)

type pageData struct {
	Title     string
	Infos     spec.Infos
	BaseURL   string
	Resources []*spec.Resource
	Form      map[int]*spec.FormState
}

func newPageData(title string, vm *spec.ViewModel) pageData {
	base := ""
	if vm.Infos.Host != "" {
		base = vm.Infos.Scheme + "://" + vm.Infos.Host
	}
	base += vm.Infos.BasePath
	return pageData{
		Title:     title,
		Infos:     vm.Infos,
		BaseURL:   base,
		Resources: vm.Resources,
		Form:      vm.Form,
	}
}

var funcs = template.FuncMap{
	// Descriptor text reaching here has been sanitized or comes from a
	// trusted source.
	"safe": func(s spec.SafeHTML) template.HTML { return template.HTML(s) },
	"upper": func(m spec.HttpMethod) string {
		return strings.ToUpper(string(m))
	},
	"node": func(n *spec.Node) string {
		if n == nil {
			return ""
		}
		if n.Kind == spec.StringKind {
			return n.Str
		}
		raw, err := n.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(raw)
	},
	"statuses": func(m map[string]*spec.Response) []*spec.Response {
		out := make([]*spec.Response, 0, len(m))
		for _, r := range m {
			out = append(out, r)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
		return out
	},
}

var pageTmpl = template.Must(template.New("index.html").Funcs(funcs).Parse(pageHTML))

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="style.css">
</head>
<body>
<header>
<h1>{{.Title}}{{with .Infos.Version}} <small>{{.}}</small>{{end}}</h1>
{{with .Infos.Description}}<div class="description">{{safe .}}</div>{{end}}
{{with .BaseURL}}<p class="base">Base URL: <code>{{.}}</code></p>{{end}}
{{with .Infos.TermsOfService}}<p><a href="{{.}}">Terms of service</a></p>{{end}}
{{with .Infos.Contact}}<p class="contact">Contact: {{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}{{with .Email}} <a href="mailto:{{.}}">{{.}}</a>{{end}}</p>{{end}}
{{with .Infos.License}}<p class="license">License: {{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</p>{{end}}
</header>
<main>
{{range .Resources}}
<details class="resource" id="{{.Name}}"{{if .Open}} open{{end}}>
<summary><h2>{{.Name}}</h2>{{with .Description}} <span class="description">{{safe .}}</span>{{end}}</summary>
{{range .Operations}}
<details class="operation {{.Method}}{{if .Deprecated}} deprecated{{end}}" id="operation-{{.ID}}"{{if .Open}} open{{end}}>
<summary><span class="method">{{upper .Method}}</span> <code class="path">{{.Path}}</code>{{with .Summary}} <span class="summary">{{.}}</span>{{end}}</summary>
{{with .Description}}<div class="description">{{safe .}}</div>{{end}}
{{if .Parameters}}
<h4>Parameters</h4>
<table class="parameters">
<thead><tr><th>Name</th><th>In</th><th>Type</th><th>Description</th><th>Default</th></tr></thead>
<tbody>
{{range .Parameters}}<tr id="param-{{.ID}}"><td>{{.Name}}{{if .Required}} <em>required</em>{{end}}</td><td>{{.In}}</td><td>{{if .Schema}}<div class="model">{{safe .Schema.Model}}</div>{{else}}{{.Type}}{{with .Enum}} <span class="enum">{{node .}}</span>{{end}}{{end}}</td><td>{{safe .Description}}</td><td>{{if .Schema}}<pre class="sample">{{.Schema.JSON}}</pre>{{else}}{{node .Default}}{{end}}</td></tr>
{{end}}</tbody>
</table>
{{end}}
{{with .ResponseClass}}
<h4>Response {{.Status}}</h4>
{{with .Description}}<p>{{safe .}}</p>{{end}}
{{with .Schema}}<div class="model">{{safe .Model}}</div>{{with .JSON}}<pre class="sample">{{.}}</pre>{{end}}{{end}}
{{end}}
{{if .HasResponses}}
<h4>Other responses</h4>
<table class="responses">
<thead><tr><th>Status</th><th>Description</th><th>Model</th></tr></thead>
<tbody>
{{range statuses .Responses}}<tr><td>{{.Status}}</td><td>{{safe .Description}}</td><td>{{with .Schema}}<div class="model">{{safe .Model}}</div>{{end}}</td></tr>
{{end}}</tbody>
</table>
{{end}}
{{with index $.Form .ID}}<p class="form">Content type: <code>{{if .ContentType}}{{.ContentType}}{{else}}none{{end}}</code>, response type: <code>{{.ResponseType}}</code></p>{{end}}
</details>
{{end}}
</details>
{{end}}
</main>
</body>
</html>
`

const styleCSS = `body { font-family: sans-serif; margin: 2em auto; max-width: 960px; color: #222; }
header small { color: #777; }
details.resource { border-top: 1px solid #ddd; padding: .5em 0; }
details.resource > summary h2 { display: inline; }
details.operation { margin: .5em 0 .5em 1em; border: 1px solid #ccc; border-radius: 4px; padding: .25em .5em; }
details.operation.deprecated .path { text-decoration: line-through; }
.method { display: inline-block; min-width: 5em; font-weight: bold; text-transform: uppercase; }
.get .method { color: #0f6ab4; }
.post .method { color: #10a54a; }
.put .method { color: #c5862b; }
.delete .method { color: #a41e22; }
.model .pad { padding-left: 1.5em; }
.model .type { color: #55a; }
pre.sample { background: #f7f7f7; padding: .5em; overflow-x: auto; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; vertical-align: top; padding: .25em .5em; border-bottom: 1px solid #eee; }
`
