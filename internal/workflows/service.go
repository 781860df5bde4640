package workflows

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/PolarWolf314/knox/internal/audit"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	logger "github.com/PolarWolf314/knox/internal/logging"
	"github.com/PolarWolf314/knox/internal/metrics"
	"github.com/PolarWolf314/knox/internal/secrets"
	"github.com/PolarWolf314/knox/internal/shred"
	"github.com/PolarWolf314/knox/internal/utils"
)

// DefaultStreamThreshold is the largest file sealed as a single chunk.
const DefaultStreamThreshold = 64 << 20

// Config is the injected configuration of a Service.
type Config struct {
	// Algorithm is used when a request does not name one.
	Algorithm secrets.Algorithm

	// KDF is the key derivation applied to new containers.
	KDF secrets.KDFParams

	// ChunkSize is the plaintext chunk size for files above StreamThreshold.
	ChunkSize uint32

	// StreamThreshold is the largest file sealed as one chunk.
	StreamThreshold int64

	// ShredPasses is used when a shred request does not specify passes.
	ShredPasses int

	// Workers bounds the number of files processed concurrently by batch calls.
	Workers int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Algorithm:       secrets.DefaultAlgorithm,
		KDF:             secrets.DefaultKDFParams(),
		ChunkSize:       secrets.DefaultChunkSize,
		StreamThreshold: DefaultStreamThreshold,
		ShredPasses:     shred.DefaultPasses,
		Workers:         min(runtime.NumCPU(), 4),
	}
}

// Validate checks that cfg can drive a Service.
func (c Config) Validate() error {
	if !c.Algorithm.Supported() {
		return fmt.Errorf("%w: default algorithm %s", kerrors.ErrUnsupportedAlgorithm, c.Algorithm)
	}
	if err := c.KDF.Validate(); err != nil {
		return err
	}
	if c.ChunkSize == 0 || c.ChunkSize > secrets.MaxChunkSize {
		return kerrors.Invalid("chunk size", "must be between 1 and %d bytes", secrets.MaxChunkSize)
	}
	if c.StreamThreshold < 0 || c.StreamThreshold > secrets.MaxChunkSize {
		return kerrors.Invalid("stream threshold", "must be between 0 and %d bytes", secrets.MaxChunkSize)
	}
	if c.ShredPasses < 1 || c.ShredPasses > shred.MaxPasses {
		return kerrors.Invalid("shred passes", "must be between 1 and %d", shred.MaxPasses)
	}
	if c.Workers < 1 {
		return kerrors.Invalid("workers", "must be at least 1")
	}
	return nil
}

// Service orchestrates key derivation, encryption, the container codec and
// secure deletion. It holds no mutable state and is safe for concurrent use.
type Service struct {
	cfg      Config
	log      logger.Logger
	audit    audit.Recorder
	metrics  *metrics.Collector
	shredder *shred.Shredder
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRecorder sets the audit sink.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithShredder replaces the shredder.
func WithShredder(sh *shred.Shredder) Option {
	return func(s *Service) { s.shredder = sh }
}

// New validates cfg and builds a Service.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		audit:    audit.Nop{},
		shredder: shred.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Logger returns the service logger so collaborators log consistently.
func (s *Service) Logger() logger.Logger {
	return s.log
}

// Recorder returns the audit sink.
func (s *Service) Recorder() audit.Recorder {
	return s.audit
}

// Metrics returns the metrics collector, which may be nil.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// ShredOutcome reports a secure deletion requested as a side effect. It is
// kept apart from the primary result so that a successful encrypt with a
// failed cleanup is visible as exactly that.
type ShredOutcome struct {
	// Requested is true if the caller asked for the shred.
	Requested bool

	// Report is set when the shred completed.
	Report *shred.Report

	// Err is set when the shred failed. The primary operation still succeeded.
	Err error
}

// Failed reports whether a requested shred did not complete.
func (o ShredOutcome) Failed() bool {
	return o.Requested && o.Err != nil
}

func (s *Service) chunkSizeFor(size int64) uint32 {
	if size <= s.cfg.StreamThreshold {
		return uint32(max(size, 1))
	}
	return s.cfg.ChunkSize
}

func (s *Service) resolveAlgorithm(alg secrets.Algorithm) (secrets.Algorithm, error) {
	if alg == secrets.AlgorithmUnknown {
		alg = s.cfg.Algorithm
	}
	if !alg.Supported() {
		return alg, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedAlgorithm, alg)
	}
	return alg, nil
}

func statusOf(err error) string {
	if err != nil {
		return audit.StatusFailure
	}
	return audit.StatusSuccess
}

// finish records metrics and the audit entry of a completed operation.
func (s *Service) finish(entry audit.Entry, start time.Time, err error) {
	entry.Status = statusOf(err)
	if err != nil {
		entry.Error = kerrors.UserMessage(err)
	}
	s.metrics.ObserveOperation(entry.Operation, entry.Status, time.Since(start))
	s.audit.Record(entry)
}

// sideShred performs a shred requested as a side effect of another operation.
func (s *Service) sideShred(ctx context.Context, path string) ShredOutcome {
	outcome := ShredOutcome{Requested: true}
	outcome.Report, outcome.Err = s.shred(ctx, path, s.cfg.ShredPasses)
	if outcome.Err != nil {
		s.log.WarnfAlways("Could not shred %s: %v", path, outcome.Err)
	}
	return outcome
}

// writeStaged writes dest through a staged file, removing everything on error.
// Unless exact is set, a taken dest moves on to the first free "name (n).ext"
// variant. Returns the path that was written.
func writeStaged(dest string, exact bool, write func(io.Writer) error) (string, error) {
	stage := utils.CreateStagedUnique
	if exact {
		stage = utils.CreateStaged
	}
	staged, err := stage(dest, 0600)
	if err != nil {
		return "", err
	}

	buf := bufio.NewWriterSize(staged, 256<<10)
	if err := write(buf); err != nil {
		staged.Abort()
		return "", err
	}
	if err := buf.Flush(); err != nil {
		staged.Abort()
		return "", kerrors.NewIOError("write", staged.Path(), err)
	}
	if err := staged.Commit(); err != nil {
		return "", err
	}
	return staged.Path(), nil
}
