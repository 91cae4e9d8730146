package grouping

import (
	"context"
	"errors"
	"log"

	"stickyboard-backend/internal/model"
)

// 그룹 해체 시 멤버를 흩어 놓는 격자 간격. 3열까지는 겹치지 않는다.
const (
	scatterStep = 100.0
	scatterCols = 3
)

// Engine resolves drag gestures against the current snapshot and issues
// mutation commands. Missing entities and self-referential drops degrade to
// logged no-ops; concurrent mutation is expected under multi-participant use.
type Engine struct {
	snap Snapshot
	cmd  Commander
}

// NewEngine Engine 생성
func NewEngine(snap Snapshot, cmd Commander) *Engine {
	return &Engine{snap: snap, cmd: cmd}
}

// commanded 커맨드 실행 결과 판정. 스냅샷 읽기와 쓰기 사이에 대상이 지워지는
// 경합은 다중 참가자 환경에서 정상이므로 로그만 남기고 no-op으로 강등한다.
func commanded(outcome Outcome, err error) (Outcome, error) {
	if err == nil {
		return outcome, nil
	}
	if errors.Is(err, ErrNotFound) {
		log.Printf("[Grouping] Command target vanished mid-write, ignoring: %v", err)
		return OutcomeNone, nil
	}
	return OutcomeNone, err
}

// ResolveDrag runs the drag-end decision table. Priority order: group move,
// plain note move, same-group reorder, cross-group move, ungroup, join,
// merge-into-new-group. First match wins; anything unmatched is a no-op.
func (e *Engine) ResolveDrag(ctx context.Context, g Gesture) (Outcome, error) {
	if g.SubjectID == "" {
		log.Printf("[Grouping] Drag ended without a subject, ignoring")
		return OutcomeNone, nil
	}

	if g.SubjectKind == SubjectGroup {
		return e.resolveGroupDrag(ctx, g)
	}

	subject, ok := e.snap.NoteByID(g.SubjectID)
	if !ok {
		log.Printf("[Grouping] Subject note %s no longer exists, ignoring drag", g.SubjectID)
		return OutcomeNone, nil
	}

	if subject.IsGrouped() {
		return e.resolveGroupedNoteDrag(ctx, g, subject)
	}
	return e.resolveStandaloneNoteDrag(ctx, g, subject)
}

// resolveGroupDrag 그룹 이동: 멤버는 그룹 기준 상대 배치라 암묵적으로 따라온다
func (e *Engine) resolveGroupDrag(ctx context.Context, g Gesture) (Outcome, error) {
	group, ok := e.snap.GroupByID(g.SubjectID)
	if !ok {
		log.Printf("[Grouping] Group %s no longer exists, ignoring drag", g.SubjectID)
		return OutcomeNone, nil
	}

	return commanded(OutcomeMoveGroup, e.cmd.MoveGroup(ctx, group.ID, group.X+g.DeltaX, group.Y+g.DeltaY))
}

func (e *Engine) resolveGroupedNoteDrag(ctx context.Context, g Gesture, subject model.Note) (Outcome, error) {
	currentGroupID := *subject.GroupID

	// 드롭 대상 없음 → 그룹 이탈, 착지점은 그룹 앵커 + 델타
	if !g.HasTarget() {
		return e.leaveGroup(ctx, subject, currentGroupID, g)
	}

	switch g.TargetKind {
	case TargetNote:
		if g.TargetID == subject.ID {
			return OutcomeNone, nil // 자기 자신 위 드롭
		}
		target, ok := e.snap.NoteByID(g.TargetID)
		if !ok {
			log.Printf("[Grouping] Target note %s vanished mid-drag, ignoring", g.TargetID)
			return OutcomeNone, nil
		}

		if target.IsGrouped() {
			if *target.GroupID == currentGroupID {
				return e.reorderWithinGroup(ctx, currentGroupID, subject.ID, target.ID)
			}
			// 다른 그룹의 멤버 위 → 그 그룹으로 직접 이동
			return commanded(OutcomeJoinGroup, e.cmd.AttachToGroup(ctx, subject.ID, *target.GroupID))
		}

		// 독립 노트 위 → 앞선 규칙에 걸리지 않았으므로 그룹 이탈
		return e.leaveGroup(ctx, subject, currentGroupID, g)

	case TargetGroupZone:
		if g.TargetID == currentGroupID {
			return OutcomeNone, nil // 자기 그룹 존 위 드롭
		}
		if _, ok := e.snap.GroupByID(g.TargetID); !ok {
			log.Printf("[Grouping] Target group %s vanished mid-drag, ignoring", g.TargetID)
			return OutcomeNone, nil
		}
		return commanded(OutcomeJoinGroup, e.cmd.AttachToGroup(ctx, subject.ID, g.TargetID))
	}

	return OutcomeNone, nil
}

func (e *Engine) resolveStandaloneNoteDrag(ctx context.Context, g Gesture, subject model.Note) (Outcome, error) {
	// 드롭 대상 없음 → 단순 이동
	if !g.HasTarget() {
		return commanded(OutcomeMoveNote, e.cmd.MoveNote(ctx, subject.ID, subject.X+g.DeltaX, subject.Y+g.DeltaY))
	}

	switch g.TargetKind {
	case TargetGroupZone:
		if _, ok := e.snap.GroupByID(g.TargetID); !ok {
			log.Printf("[Grouping] Target group %s vanished mid-drag, ignoring", g.TargetID)
			return OutcomeNone, nil
		}
		return commanded(OutcomeJoinGroup, e.cmd.AttachToGroup(ctx, subject.ID, g.TargetID))

	case TargetNote:
		if g.TargetID == subject.ID {
			return OutcomeNone, nil
		}
		target, ok := e.snap.NoteByID(g.TargetID)
		if !ok {
			log.Printf("[Grouping] Target note %s vanished mid-drag, ignoring", g.TargetID)
			return OutcomeNone, nil
		}

		// 그룹 멤버 위 → 그 그룹에 합류
		if target.IsGrouped() {
			return commanded(OutcomeJoinGroup, e.cmd.AttachToGroup(ctx, subject.ID, *target.GroupID))
		}

		// 둘 다 독립 노트 → 대상 노트 위치를 앵커로 새 그룹 생성
		return e.mergeIntoNewGroup(ctx, subject, target)
	}

	return OutcomeNone, nil
}

func (e *Engine) leaveGroup(ctx context.Context, subject model.Note, groupID string, g Gesture) (Outcome, error) {
	group, ok := e.snap.GroupByID(groupID)
	if !ok {
		log.Printf("[Grouping] Group %s of note %s no longer exists, ignoring", groupID, subject.ID)
		return OutcomeNone, nil
	}

	return commanded(OutcomeLeaveGroup, e.cmd.DetachFromGroup(ctx, subject.ID, group.X+g.DeltaX, group.Y+g.DeltaY))
}

// reorderWithinGroup removes the subject from the display order and reinserts
// it at the target's index, then renumbers the whole list 0..n-1.
func (e *Engine) reorderWithinGroup(ctx context.Context, groupID, subjectID, targetID string) (Outcome, error) {
	members := e.snap.GroupMembers(groupID)

	oldIndex, newIndex := -1, -1
	ids := make([]string, len(members))
	for i, n := range members {
		ids[i] = n.ID
		if n.ID == subjectID {
			oldIndex = i
		}
		if n.ID == targetID {
			newIndex = i
		}
	}
	if oldIndex < 0 || newIndex < 0 || oldIndex == newIndex {
		return OutcomeNone, nil
	}

	return commanded(OutcomeReorder, e.cmd.ReorderGroup(ctx, arrayMove(ids, oldIndex, newIndex), groupID))
}

// mergeIntoNewGroup 두 독립 노트를 새 그룹으로 병합. 어느 한쪽이라도 이미
// 그룹에 속해 있으면 기존 그룹에서 조용히 빼앗지 않도록 거부한다.
func (e *Engine) mergeIntoNewGroup(ctx context.Context, subject, target model.Note) (Outcome, error) {
	if subject.IsGrouped() || target.IsGrouped() {
		return OutcomeNone, nil
	}

	groupID, err := e.cmd.CreateGroup(ctx, target.BoardID, model.DefaultGroupName, target.X, target.Y)
	if err != nil {
		return commanded(OutcomeNone, err)
	}
	if err := e.cmd.AttachToGroup(ctx, subject.ID, groupID); err != nil {
		return commanded(OutcomeNone, err)
	}
	if err := e.cmd.AttachToGroup(ctx, target.ID, groupID); err != nil {
		return commanded(OutcomeNone, err)
	}
	return OutcomeCreateGroup, nil
}

// Disband ungroups every member onto a deterministic scatter grid relative to
// the group anchor, then hard-deletes the group record. Notes survive; the
// group does not.
func (e *Engine) Disband(ctx context.Context, groupID string) (Outcome, error) {
	group, ok := e.snap.GroupByID(groupID)
	if !ok {
		log.Printf("[Grouping] Disband requested for missing group %s, ignoring", groupID)
		return OutcomeNone, nil
	}

	members := e.snap.GroupMembers(groupID)
	for i, n := range members {
		x := group.X + float64(i%scatterCols)*scatterStep
		y := group.Y + float64(i/scatterCols)*scatterStep
		if err := e.cmd.DetachFromGroup(ctx, n.ID, x, y); err != nil {
			// 흩어 놓는 도중 사라진 멤버는 건너뛰고 나머지를 계속 처리한다
			if errors.Is(err, ErrNotFound) {
				log.Printf("[Grouping] Member %s vanished mid-disband, skipping: %v", n.ID, err)
				continue
			}
			return OutcomeNone, err
		}
	}

	return commanded(OutcomeDisband, e.cmd.DeleteGroup(ctx, group.ID))
}

// arrayMove 표시 순서 리스트에서 from의 요소를 to 위치로 옮긴 복사본
func arrayMove(ids []string, from, to int) []string {
	moved := make([]string, 0, len(ids))
	moved = append(moved, ids[:from]...)
	moved = append(moved, ids[from+1:]...)

	out := make([]string, 0, len(ids))
	out = append(out, moved[:to]...)
	out = append(out, ids[from])
	out = append(out, moved[to:]...)
	return out
}
