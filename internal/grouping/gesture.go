// Package grouping implements the drag-end decision procedure: given a drag
// gesture's subject, drop target, and pointer delta, it decides the single
// semantic outcome and issues the corresponding mutation commands.
package grouping

import (
	"context"
	"errors"

	"stickyboard-backend/internal/model"
)

// SubjectKind 드래그 주체 종류
type SubjectKind string

const (
	SubjectNote  SubjectKind = "note"  // 독립 노트 또는 그룹 멤버 (스냅샷이 판정)
	SubjectGroup SubjectKind = "group" // 그룹 전체
)

func (k SubjectKind) String() string {
	return string(k)
}

// TargetKind 드롭 대상 종류 (클라이언트의 pointer-within 충돌 판정 결과)
type TargetKind string

const (
	TargetNone      TargetKind = ""
	TargetNote      TargetKind = "note"       // 다른 노트 (grouped 여부는 스냅샷이 판정)
	TargetGroupZone TargetKind = "group-zone" // 그룹의 드롭 존
)

func (k TargetKind) String() string {
	return string(k)
}

// Gesture 드래그 완료 1회분의 원시 기술
type Gesture struct {
	SubjectKind SubjectKind `json:"subject_kind"`
	SubjectID   string      `json:"subject_id"`
	DeltaX      float64     `json:"delta_x"`
	DeltaY      float64     `json:"delta_y"`
	TargetKind  TargetKind  `json:"target_kind,omitempty"`
	TargetID    string      `json:"target_id,omitempty"`
}

// HasTarget 드롭 대상 존재 여부
func (g Gesture) HasTarget() bool {
	return g.TargetKind != TargetNone && g.TargetID != ""
}

// Outcome 결정된 의미적 결과 (로그/테스트 식별용)
type Outcome string

const (
	OutcomeNone        Outcome = "noop"
	OutcomeMoveNote    Outcome = "move-note"
	OutcomeMoveGroup   Outcome = "move-group"
	OutcomeLeaveGroup  Outcome = "leave-group"
	OutcomeReorder     Outcome = "reorder"
	OutcomeJoinGroup   Outcome = "join-group"
	OutcomeCreateGroup Outcome = "create-group"
	OutcomeDisband     Outcome = "disband"
)

// Snapshot is the read-only view of one board's current entities, kept fresh
// by subscription callbacks. The engine never mutates it.
type Snapshot interface {
	NoteByID(id string) (model.Note, bool)
	GroupByID(id string) (model.Group, bool)
	// GroupMembers returns the group's notes in display order
	// (orderInGroup asc, missing last, ties by creation time).
	GroupMembers(groupID string) []model.Note
}

// ErrNotFound marks a command failure caused by the target disappearing
// between the snapshot read and the write. Commander implementations wrap it
// so the engine can tell an expected multi-participant race from a real
// failure; the engine degrades wrapped errors to logged no-ops.
var ErrNotFound = errors.New("not found")

// Commander issues mutation commands to the persistence layer. The engine
// waits for the subscription feed to reflect results; it never writes the
// snapshot directly. Not-found failures wrap ErrNotFound.
type Commander interface {
	MoveNote(ctx context.Context, noteID string, x, y float64) error
	MoveGroup(ctx context.Context, groupID string, x, y float64) error
	// AttachToGroup sets groupId and clears orderInGroup (appended to the end
	// of the display order).
	AttachToGroup(ctx context.Context, noteID, groupID string) error
	// DetachFromGroup clears groupId/orderInGroup and sets the new position in
	// a single write, so the store never derives position from stale membership.
	DetachFromGroup(ctx context.Context, noteID string, x, y float64) error
	CreateGroup(ctx context.Context, boardID, name string, x, y float64) (string, error)
	DeleteGroup(ctx context.Context, groupID string) error
	ReorderGroup(ctx context.Context, orderedNoteIDs []string, groupID string) error
}
