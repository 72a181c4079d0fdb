package billdocs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Default engine timeouts.
const (
	defaultTimeout = 30 * time.Second

	// chromedpHardTimeout bounds the secondary engine with a hard
	// wall-clock limit to contain renderer hangs. On expiry the attempt
	// is abandoned without retry and the chain falls through.
	chromedpHardTimeout = 45 * time.Second
)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout         time.Duration
	chromedpTimeout time.Duration
	caps            *Capabilities
	log             *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the primary engine conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("billdocs: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithCapabilities overrides the environment probe. Intended for servers
// that probe once at startup and inject the result into every Service.
func WithCapabilities(caps Capabilities) Option {
	return func(s *Service) {
		c := caps
		s.cfg.caps = &c
	}
}

// WithLogger sets the logger used for per-document fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.cfg.log = l
	}
}

// withEngines injects a fixed engine chain, bypassing the capability
// probe. Test-only.
func withEngines(engines ...engine) Option {
	return func(s *Service) {
		s.engines = engines
	}
}

// Service converts rendered HTML documents to PDF through an ordered
// engine fallback chain. Convert never fails past its boundary: every
// per-document error is absorbed and the worst case degrades to a
// synthetic error PDF for that document only.
type Service struct {
	cfg     serviceConfig
	engines []engine
}

// New creates a Service with default configuration. The environment is
// probed once here; engines found unavailable are left out of the chain.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{
			timeout:         defaultTimeout,
			chromedpTimeout: chromedpHardTimeout,
			log:             slog.Default(),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	// Build the chain if not injected (e.g., by tests).
	if s.engines == nil {
		caps := s.cfg.caps
		if caps == nil {
			probed := ProbeCapabilities()
			caps = &probed
		}
		s.engines = buildEngineChain(*caps, s.cfg)
	}

	return s
}

// Convert maps every document in the set to PDF bytes, preserving input
// order. The result always holds exactly one entry per input document
// under the key "<name>.pdf"; a document whose conversion fails on every
// engine yields a synthetic error PDF, never an absence.
//
// The context bounds total batch time: it is consulted between documents
// and passed through to engines, but an engine attempt already in flight
// is only abandoned at its own timeout boundary.
func (s *Service) Convert(ctx context.Context, docs DocumentSet) PDFSet {
	out := make(PDFSet, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			out = append(out, syntheticErrorPDF(doc.Name, err))
			continue
		}
		out = append(out, s.convertOne(ctx, doc))
	}
	return out
}

// convertOne walks the engine chain for a single document. The first
// engine producing non-empty output wins; total failure degrades to the
// synthetic error PDF carrying the last engine error.
func (s *Service) convertOne(ctx context.Context, doc Document) PDFDocument {
	lastErr := ErrNoEngines
	if doc.HTML == "" {
		return syntheticErrorPDF(doc.Name, ErrEmptyHTML)
	}

	for _, eng := range s.engines {
		data, err := eng.Convert(ctx, doc)
		if err != nil {
			s.cfg.log.Warn("engine failed, falling back",
				"document", doc.Name, "engine", eng.Name(), "error", err)
			lastErr = err
			continue
		}
		if len(data) == 0 {
			s.cfg.log.Warn("engine produced empty output, falling back",
				"document", doc.Name, "engine", eng.Name())
			lastErr = ErrEmptyPDF
			continue
		}
		return PDFDocument{Name: doc.Name + ".pdf", Data: data, Engine: eng.Name()}
	}

	s.cfg.log.Warn("all engines failed, emitting error document",
		"document", doc.Name, "error", lastErr)
	return syntheticErrorPDF(doc.Name, lastErr)
}

// Close releases engine resources (headless browser instances).
func (s *Service) Close() error {
	var errs []error
	for _, eng := range s.engines {
		if err := eng.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
