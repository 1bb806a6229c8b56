package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"biblegen/config"
	"biblegen/internal/adapter/mapper"
	"biblegen/internal/domain"
	"biblegen/internal/port"
)

// monotonicSlack is how much coverage may rise between threshold steps
// before the step is flagged.
const monotonicSlack = 0.01

// SweepStep is one mapping run at a single Jaccard threshold.
type SweepStep struct {
	Jaccard   float64
	Coverage  float64
	Mapped    int
	Nulls     int
	Conflicts int
	// Increased is set when coverage rose by more than monotonicSlack
	// compared with the previous, lower threshold.
	Increased bool
}

// SweepUseCase maps one corpus at a range of Jaccard thresholds.
type SweepUseCase struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewSweepUseCase(cfg *config.Config, logger *slog.Logger) *SweepUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepUseCase{cfg: cfg, logger: logger}
}

// Run parses datasets once and generates cross references for every
// threshold from..to (inclusive) in increments of step.
func (u *SweepUseCase) Run(ctx context.Context, datasets []port.Dataset, from, to, step float64) ([]SweepStep, error) {
	if step <= 0 || from > to {
		return nil, &domain.ValidationError{Field: "sweep", Message: fmt.Sprintf("invalid range %g..%g step %g", from, to, step)}
	}

	loader := NewBuildUseCase(u.cfg, nil, nil)
	corpus, _, err := loader.loadCorpus(ctx, u.logger, datasets, nil)
	if err != nil {
		return nil, err
	}

	var steps []SweepStep
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j := math.Round((from+float64(i)*step)*1e6) / 1e6

		m := mapper.New(mapper.NewConfig(j, u.cfg.Mapper.LevenshteinThreshold))
		for _, version := range sortedKeys(u.cfg.Datasets.Versification) {
			m.SetVersification(version, u.cfg.Datasets.Versification[version])
		}
		xref, err := m.GenerateWithFallback(corpus)
		if err != nil {
			return nil, err
		}

		s := SweepStep{
			Jaccard:   j,
			Coverage:  xref.Metrics.Coverage,
			Mapped:    xref.Metrics.Mapped,
			Nulls:     xref.Metrics.Nulls,
			Conflicts: xref.Metrics.Conflicts,
		}
		if len(steps) > 0 && s.Coverage > steps[len(steps)-1].Coverage+monotonicSlack {
			s.Increased = true
			u.logger.Warn("coverage increased with a stricter threshold", "jaccard", j, "coverage", s.Coverage)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
