package workflows

import (
	"context"
	"time"

	"github.com/PolarWolf314/knox/internal/audit"
	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/shred"
)

// Shred overwrites path with passes passes and unlinks it. Zero passes means
// the configured default.
//
// Returns ValidationError if passes is out of range or path is not a regular file.
// Returns ShredError classified as Locked, ReadOnlyFilesystem or
// DeviceFlushUnsupported when the platform reports those conditions.
func (s *Service) Shred(ctx context.Context, path string, passes int) (*shred.Report, error) {
	if passes == 0 {
		passes = s.cfg.ShredPasses
	}
	if passes < 1 || passes > shred.MaxPasses {
		err := kerrors.Invalid("passes", "must be between 1 and %d", shred.MaxPasses)
		s.finish(audit.Entry{Operation: audit.OpShred, Files: []string{path}, Passes: passes}, time.Now(), err)
		return nil, err
	}
	return s.shred(ctx, path, passes)
}

func (s *Service) shred(ctx context.Context, path string, passes int) (report *shred.Report, err error) {
	start := time.Now()
	entry := audit.Entry{Operation: audit.OpShred, Files: []string{path}, Passes: passes}
	defer func() { s.finish(entry, start, err) }()

	s.log.Debugf("Shredding %s with %d passes", path, passes)
	report, err = s.shredder.Shred(ctx, path, passes)
	if err != nil {
		return nil, err
	}
	s.metrics.AddShredBytes(report.BytesOverwritten)
	s.log.Infof("Shredded %s (%d passes)", path, report.Passes)
	return report, nil
}
