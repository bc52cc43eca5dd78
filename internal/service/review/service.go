// Package review implements the duplicate-word resolution workflow: it
// tracks the working session over one uploaded dataset, walks the
// reviewer through unresolved word groups, and applies labeling policies
// to the record store.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/aaed-cleaner/internal/config"
	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type recordRepo interface {
	ReplaceAll(ctx context.Context, recs []domain.Record) error
	All(ctx context.Context) ([]domain.Record, error)
	SetLabels(ctx context.Context, labels map[domain.RecordKey]int) error
	ResolveSingletons(ctx context.Context) (int64, error)
	UnresolvedGroups(ctx context.Context) ([]domain.Group, error)
	GroupByWord(ctx context.Context, word string) (*domain.Group, error)
	Progress(ctx context.Context) (domain.Progress, error)
}

// ---------------------------------------------------------------------------
// Session state machine
// ---------------------------------------------------------------------------

// State is the session controller's state.
type State string

const (
	// StateNoDataset means no dataset has been loaded yet.
	StateNoDataset State = "no_groups_loaded"
	// StatePresenting means the current unresolved group awaits a decision.
	StatePresenting State = "presenting_group"
	// StateAwaitingManual means the reviewer chose manual classification
	// for the current group and has not submitted it yet.
	StateAwaitingManual State = "awaiting_manual_input"
	// StateAllResolved means every record carries a label.
	StateAllResolved State = "all_resolved"
)

// Session is the owned working state over one uploaded dataset. A fresh
// Session (with a fresh ID) is created whenever a dataset with a new file
// identity is loaded.
type Session struct {
	ID       uuid.UUID
	FileName string
	State    State

	// queue holds the pending words, current group first. Skipped words
	// rotate to the tail.
	queue []string
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the review business logic. All operations are
// synchronous; the mutex serializes the single decision flow against
// concurrent HTTP requests.
type Service struct {
	log     *slog.Logger
	records recordRepo
	cfg     config.ReviewConfig

	mu   sync.Mutex
	sess *Session
}

// NewService creates a new review service.
func NewService(logger *slog.Logger, records recordRepo, cfg config.ReviewConfig) *Service {
	return &Service{
		log:     logger.With("service", "review"),
		records: records,
		cfg:     cfg,
	}
}

// requireState checks the current session state. Returns domain.ErrConflict
// when the operation is not valid in the current state.
func (s *Service) requireState(want State) error {
	if s.sess == nil {
		return fmt.Errorf("no dataset loaded: %w", domain.ErrConflict)
	}
	if s.sess.State != want {
		return fmt.Errorf("operation requires state %q, session is %q: %w", want, s.sess.State, domain.ErrConflict)
	}
	return nil
}

// advance drops the current word from the queue after its group was
// resolved and derives the next state.
func (s *Service) advance() {
	s.sess.queue = s.sess.queue[1:]
	if len(s.sess.queue) == 0 {
		s.sess.State = StateAllResolved
	} else {
		s.sess.State = StatePresenting
	}
}

// currentGroup returns the group at the head of the pending queue.
func (s *Service) currentGroup(ctx context.Context) (*domain.Group, error) {
	if len(s.sess.queue) == 0 {
		return nil, fmt.Errorf("pending queue empty: %w", domain.ErrConflict)
	}
	g, err := s.records.GroupByWord(ctx, s.sess.queue[0])
	if err != nil {
		return nil, fmt.Errorf("current group: %w", err)
	}
	return g, nil
}

// maxGroupsFor caps the number of manual sub-groups for a group: the
// configured limit, but never more than the group has members.
func (s *Service) maxGroupsFor(g *domain.Group) int {
	if g.Size() < s.cfg.MaxManualGroups {
		return g.Size()
	}
	return s.cfg.MaxManualGroups
}
