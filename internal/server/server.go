package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/mark3labs/swaggerview/internal/spec"
)

// Config configures the descriptor service.
//
// GET /api/descriptor fetches the url parameter from the server. With no
// AllowedHosts every http(s) host is reachable, loopback and link-local
// addresses included, which is why the default Listen address is loopback.
// Set AllowedHosts before exposing the service to other machines.
type Config struct {
	Listen       string        `validate:"required,hostname_port"`
	FetchTimeout time.Duration `validate:"gte=0"`
	MaxBytes     int64         `validate:"gte=0"`
	AllowedHosts []string      `validate:"dive,required"` // host or host:port
	Logger       *slog.Logger  `validate:"-"`
}

// DefaultConfig returns the settings used by `swaggerview serve`.
func DefaultConfig() Config {
	s := spec.DefaultSettings()
	return Config{
		Listen:       "127.0.0.1:8080",
		FetchTimeout: s.HTTPTimeout,
		MaxBytes:     s.MaxBytes,
	}
}

// Server turns descriptors into view models over HTTP.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	validate *validator.Validate
	decoder  *schema.Decoder
	handler  http.Handler
}

// New validates cfg and builds the service.
func New(cfg Config) (*Server, error) {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, toError(err)
	}
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		validate: validate,
		decoder:  decoder,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/descriptor", s.handleDescriptor)
	mux.HandleFunc("POST /api/descriptor", s.handleDescriptor)
	s.handler = withLogging(s.logger, mux)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, response{Result: map[string]string{"status": "ok"}})
}

// descriptorQuery is the query string accepted by /api/descriptor. URL is
// where the descriptor lives (GET) or was fetched from (POST); Descriptor is
// the deep link to open.
type descriptorQuery struct {
	URL        string `schema:"url" validate:"omitempty,http_url"`
	Descriptor string `schema:"descriptor" validate:"max=256"`
	Trusted    bool   `schema:"trusted"`
}

func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	vm, err := s.describe(w, r)
	if err != nil {
		writeError(w, toError(err), s.logger)
		return
	}
	if err := writeJSON(w, http.StatusOK, response{Result: vm}); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) describe(w http.ResponseWriter, r *http.Request) (*spec.ViewModel, error) {
	ctx := r.Context()

	var q descriptorQuery
	if err := s.decoder.Decode(&q, r.URL.Query()); err != nil {
		return nil, NewError(CodeInvalidArgument, "failed to decode query: "+err.Error())
	}
	if err := s.validate.Struct(q); err != nil {
		return nil, err
	}

	var (
		doc *spec.Document
		err error
	)
	if r.Method == http.MethodGet {
		if q.URL == "" {
			return nil, NewError(CodeInvalidArgument, "url: required").WithDetail("url", "required")
		}
		if !s.hostAllowed(q.URL) {
			return nil, NewError(CodePermissionDenied, "url: host is not in the allowed list").WithDetail("url", q.URL)
		}
		doc, err = spec.Load(ctx, q.URL,
			spec.WithHTTPTimeout(s.cfg.FetchTimeout),
			spec.WithMaxBytes(s.cfg.MaxBytes),
		)
	} else {
		var body io.Reader = r.Body
		if s.cfg.MaxBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBytes)
		}
		raw, rerr := io.ReadAll(body)
		if rerr != nil {
			return nil, rerr
		}
		doc, err = spec.LoadBytes(raw, q.URL)
	}
	if err != nil {
		return nil, err
	}

	return spec.Parse(ctx, doc,
		spec.WithTrusted(q.Trusted),
		spec.WithDeepLink(q.Descriptor),
		spec.WithLogger(s.logger),
	)
}

// hostAllowed reports whether raw may be fetched. Entries match the URL's
// hostname, or its host:port when they carry a port.
func (s *Server) hostAllowed(raw string) bool {
	if len(s.cfg.AllowedHosts) == 0 {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, h := range s.cfg.AllowedHosts {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, u.Hostname()) || strings.EqualFold(h, u.Host) {
			return true
		}
	}
	return false
}
