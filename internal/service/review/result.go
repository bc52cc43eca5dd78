package review

import (
	"github.com/google/uuid"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// SessionView is the session state presented to the interaction surface.
type SessionView struct {
	SessionID uuid.UUID
	FileName  string
	State     State

	// Current is the group under review; nil unless the state is
	// presenting or awaiting_manual.
	Current *domain.Group

	// MaxGroups is the number of manual sub-groups selectable for the
	// current group; zero when Current is nil.
	MaxGroups int

	// PendingGroups counts the groups still awaiting a decision,
	// including the current one.
	PendingGroups int

	Progress domain.Progress
}

// ExportResult carries the full record snapshot and the identity of the
// file it came from.
type ExportResult struct {
	FileName string
	Records  []domain.Record
}
