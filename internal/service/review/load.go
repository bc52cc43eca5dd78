package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Load starts a working session over the given dataset.
//
// File identity policy: the file name IS the dataset identity. Loading a
// file whose name matches the current session is a no-op that preserves
// every label assigned so far (content is not compared); a different name
// replaces the working set wholesale and restarts the session.
func (s *Service) Load(ctx context.Context, input LoadInput) (*SessionView, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil && s.sess.FileName == input.FileName {
		s.log.InfoContext(ctx, "dataset already loaded, keeping session",
			slog.String("file", input.FileName),
			slog.String("session_id", s.sess.ID.String()),
		)
		return s.view(ctx)
	}

	if err := s.records.ReplaceAll(ctx, input.Records); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	resolved, err := s.records.ResolveSingletons(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve singletons: %w", err)
	}

	groups, err := s.records.UnresolvedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive groups: %w", err)
	}

	queue := make([]string, len(groups))
	for i := range groups {
		queue[i] = groups[i].Word
	}

	state := StatePresenting
	if len(queue) == 0 {
		state = StateAllResolved
	}

	s.sess = &Session{
		ID:       uuid.New(),
		FileName: input.FileName,
		State:    state,
		queue:    queue,
	}

	s.log.InfoContext(ctx, "dataset loaded",
		slog.String("file", input.FileName),
		slog.String("session_id", s.sess.ID.String()),
		slog.Int("records", len(input.Records)),
		slog.Int64("singletons_resolved", resolved),
		slog.Int("pending_groups", len(queue)),
	)

	return s.view(ctx)
}
