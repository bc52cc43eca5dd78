package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// Current returns the present session view without mutating anything.
func (s *Service) Current(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(ctx)
}

// ResolveUniform marks every member of the current group as the same
// word (label 1) and advances to the next group.
func (s *Service) ResolveUniform(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return nil, err
	}

	g, err := s.currentGroup(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.records.SetLabels(ctx, uniformLabels(g)); err != nil {
		return nil, fmt.Errorf("apply uniform labels: %w", err)
	}

	s.logResolution(ctx, g, "uniform")
	s.advance()
	return s.view(ctx)
}

// ResolveDistinct marks every member of the current group as a different
// word (labels 1..N in source order) and advances to the next group.
func (s *Service) ResolveDistinct(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return nil, err
	}

	g, err := s.currentGroup(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.records.SetLabels(ctx, distinctLabels(g)); err != nil {
		return nil, fmt.Errorf("apply distinct labels: %w", err)
	}

	s.logResolution(ctx, g, "distinct")
	s.advance()
	return s.view(ctx)
}

// BeginManual switches the current group to manual classification. No
// record is mutated until the submission arrives.
func (s *Service) BeginManual(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return nil, err
	}

	s.sess.State = StateAwaitingManual
	return s.view(ctx)
}

// CancelManual abandons a manual classification and returns to the plain
// presentation of the current group.
func (s *Service) CancelManual(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StateAwaitingManual); err != nil {
		return nil, err
	}

	s.sess.State = StatePresenting
	return s.view(ctx)
}

// SubmitManual applies a manual classification to the current group
// atomically and advances to the next group. Members without an explicit
// choice default to sub-group 1.
func (s *Service) SubmitManual(ctx context.Context, input ManualInput) (*SessionView, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StateAwaitingManual); err != nil {
		return nil, err
	}

	g, err := s.currentGroup(ctx)
	if err != nil {
		return nil, err
	}

	labels, err := manualLabels(g, input.Choices, s.cfg.MaxManualGroups)
	if err != nil {
		return nil, err
	}

	if err := s.records.SetLabels(ctx, labels); err != nil {
		return nil, fmt.Errorf("apply manual labels: %w", err)
	}

	s.logResolution(ctx, g, "manual")
	s.advance()
	return s.view(ctx)
}

// Skip moves the current group to the end of the pending queue without
// resolving it. With a single pending group this changes nothing, so
// repeated skips cannot loop.
func (s *Service) Skip(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return nil, err
	}

	if len(s.sess.queue) > 1 {
		word := s.sess.queue[0]
		s.sess.queue = append(s.sess.queue[1:], word)
		s.log.InfoContext(ctx, "group skipped", slog.String("word", word))
	}

	return s.view(ctx)
}

// Export returns the full record snapshot, unresolved rows included, in
// original column order. Available in every state with a loaded dataset.
func (s *Service) Export(ctx context.Context) (*ExportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return nil, fmt.Errorf("no dataset loaded: %w", domain.ErrConflict)
	}

	recs, err := s.records.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("export records: %w", err)
	}

	return &ExportResult{FileName: s.sess.FileName, Records: recs}, nil
}

// Progress returns the resolved/total counts; zeros before any load.
func (s *Service) Progress(ctx context.Context) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return domain.Progress{}, nil
	}
	return s.records.Progress(ctx)
}

// view builds the session view for the current state. Callers hold s.mu.
func (s *Service) view(ctx context.Context) (*SessionView, error) {
	if s.sess == nil {
		return &SessionView{State: StateNoDataset}, nil
	}

	prog, err := s.records.Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}

	v := &SessionView{
		SessionID:     s.sess.ID,
		FileName:      s.sess.FileName,
		State:         s.sess.State,
		PendingGroups: len(s.sess.queue),
		Progress:      prog,
	}

	if s.sess.State == StatePresenting || s.sess.State == StateAwaitingManual {
		g, err := s.currentGroup(ctx)
		if err != nil {
			return nil, err
		}
		v.Current = g
		v.MaxGroups = s.maxGroupsFor(g)
	}

	return v, nil
}

func (s *Service) logResolution(ctx context.Context, g *domain.Group, policy string) {
	s.log.InfoContext(ctx, "group resolved",
		slog.String("word", g.Word),
		slog.Int("members", g.Size()),
		slog.String("policy", policy),
	)
}
