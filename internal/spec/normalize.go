package spec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
)

const (
	defaultTag       = "default"
	defaultMediaType = "application/json"
	formMediaType    = "application/x-www-form-urlencoded"
	multipartType    = "multipart/form-data"
)

// ParseOption configures how a descriptor is turned into a ViewModel.
type ParseOption func(*parseConfig)

type parseConfig struct {
	trusted     bool
	deepLink    string
	clock       func() time.Time
	logger      *slog.Logger
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

func newParseConfig(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{clock: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

func (c *parseConfig) now() time.Time { return c.clock() }

// WithTrusted marks the descriptor source as trusted: free-text fields are
// passed through as HTML instead of being sanitized.
func WithTrusted(trusted bool) ParseOption {
	return func(c *parseConfig) { c.trusted = trusted }
}

// WithDeepLink sets the deep-link value selecting which resource or operation
// starts open. "name*" opens every operation of resource name.
func WithDeepLink(link string) ParseOption {
	return func(c *parseConfig) { c.deepLink = strings.TrimSpace(link) }
}

// WithClock overrides the clock used for date and date-time samples.
func WithClock(now func() time.Time) ParseOption {
	return func(c *parseConfig) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithLogger sets the logger used for warnings such as unresolved references.
func WithLogger(l *slog.Logger) ParseOption {
	return func(c *parseConfig) { c.logger = l }
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) ParseOption {
	return func(c *parseConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) ParseOption {
	return func(c *parseConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) ParseOption {
	return func(c *parseConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) ParseOption {
	return func(c *parseConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// allow applies the method, path and tag filters to one operation.
func (c *parseConfig) allow(method HttpMethod, path string, tags []string) bool {
	if len(c.methods) > 0 {
		if _, ok := c.methods[method]; !ok {
			return false
		}
	}
	if len(c.pathRes) > 0 {
		matched := false
		for _, re := range c.pathRes {
			if re.MatchString(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(c.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := c.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := c.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

// metadataKeys are the top-level fields decoded through openapi2.T. Paths and
// definitions stay in the ordered tree.
var metadataKeys = []string{"swagger", "info", "externalDocs", "schemes", "consumes", "produces", "host", "basePath", "tags"}

func decodeMetadata(root *Node) (*openapi2.T, error) {
	meta := NewObject()
	for _, k := range metadataKeys {
		if v := root.Get(k); v != nil {
			meta.Set(k, v)
		}
	}
	raw, err := meta.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var doc openapi2.T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &doc, nil
}

// descriptorDefaults are the document-wide values operations fall back to.
type descriptorDefaults struct {
	consumes []string
	produces []string
}

// normalizeInfos derives the scheme and host from the load URL when the
// descriptor omits them and defaults consumes/produces to JSON. It only
// reads meta; the caller's document is left alone.
func normalizeInfos(meta *openapi2.T, loadURL string, trust trustPolicy) (Infos, descriptorDefaults) {
	var fallbackScheme, fallbackHost string
	if u, err := url.Parse(loadURL); err == nil {
		fallbackScheme = strings.ToLower(u.Scheme)
		fallbackHost = u.Host
	}

	infos := Infos{
		Title:          safeStr(meta.Info.Title),
		Description:    trust.html(meta.Info.Description),
		Version:        safeStr(meta.Info.Version),
		TermsOfService: safeStr(meta.Info.TermsOfService),
		Scheme:         fallbackScheme,
		Host:           safeStr(meta.Host),
		BasePath:       safeStr(meta.BasePath),
	}
	if len(meta.Schemes) > 0 && safeStr(meta.Schemes[0]) != "" {
		infos.Scheme = strings.ToLower(safeStr(meta.Schemes[0]))
	}
	if infos.Scheme == "" {
		infos.Scheme = "http"
	}
	if infos.Host == "" {
		infos.Host = fallbackHost
	}
	if c := meta.Info.Contact; c != nil {
		infos.Contact = &Contact{Name: c.Name, URL: c.URL, Email: c.Email}
	}
	if l := meta.Info.License; l != nil {
		infos.License = &License{Name: l.Name, URL: l.URL}
	}
	if d := meta.ExternalDocs; d != nil {
		infos.ExternalDocs = &ExternalDocs{Description: trust.html(d.Description), URL: d.URL}
	}

	defaults := descriptorDefaults{
		consumes: nonEmpty(meta.Consumes),
		produces: nonEmpty(meta.Produces),
	}
	if len(defaults.consumes) == 0 {
		defaults.consumes = []string{defaultMediaType}
	}
	if len(defaults.produces) == 0 {
		defaults.produces = []string{defaultMediaType}
	}
	return infos, defaults
}

func nonEmpty(list []string) []string {
	var out []string
	for _, s := range list {
		if s = safeStr(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func paramKey(in, name string) string { return in + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }

func toHTTPMethod(key string) (HttpMethod, bool) {
	switch m := HttpMethod(strings.ToLower(key)); m {
	case GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS:
		return m, true
	}
	return "", false
}
