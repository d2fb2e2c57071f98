package spec

import (
	"log/slog"
	"strconv"
	"time"
)

// session holds the state of one descriptor parse. Sample and model caches,
// the inline model counter and the id sequences all live here, so parses
// running concurrently never observe each other's entries.
type session struct {
	root   *Node
	now    time.Time
	logger *slog.Logger
	trust  trustPolicy

	samples     map[string]*Node  // sample objects by $ref
	models      map[string]string // rendered model fragments by $ref
	inlineCount int

	nextOperationID int
	nextParamID     int
}

func newSession(root *Node, cfg *parseConfig) *session {
	return &session{
		root:    root,
		now:     cfg.now(),
		logger:  cfg.logger,
		trust:   newTrustPolicy(cfg.trusted),
		samples: map[string]*Node{},
		models:  map[string]string{},
	}
}

func (s *session) nextInlineName() string {
	s.inlineCount++
	return "Inline Model" + strconv.Itoa(s.inlineCount)
}

func (s *session) warnMissingRef(ref, where string) {
	s.logger.Warn("definition not found", slog.String("ref", ref), slog.String("at", where))
}
