package grouping

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickyboard-backend/internal/model"
)

// fakeSnapshot 테스트용 인메모리 스냅샷
type fakeSnapshot struct {
	notes  map[string]model.Note
	groups map[string]model.Group
}

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{
		notes:  make(map[string]model.Note),
		groups: make(map[string]model.Group),
	}
}

func (s *fakeSnapshot) NoteByID(id string) (model.Note, bool) {
	n, ok := s.notes[id]
	return n, ok
}

func (s *fakeSnapshot) GroupByID(id string) (model.Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

func (s *fakeSnapshot) GroupMembers(groupID string) []model.Note {
	var members []model.Note
	for _, n := range s.notes {
		if n.GroupID != nil && *n.GroupID == groupID {
			members = append(members, n)
		}
	}
	return model.SortGroupMembers(members)
}

func (s *fakeSnapshot) addNote(id, boardID string, x, y float64, groupID string, order int, created time.Time) {
	n := model.Note{ID: id, BoardID: boardID, X: x, Y: y, CreatedAt: created}
	if groupID != "" {
		n.GroupID = &groupID
		if order >= 0 {
			o := order
			n.OrderInGroup = &o
		}
	}
	s.notes[id] = n
}

func (s *fakeSnapshot) addGroup(id, boardID string, x, y float64) {
	s.groups[id] = model.Group{ID: id, BoardID: boardID, X: x, Y: y}
}

// command 기록용 커맨더
type command struct {
	op      string
	id      string
	groupID string
	x, y    float64
	ids     []string
}

type fakeCommander struct {
	commands []command
	failures map[string]error // "op" 또는 "op/id" -> 주입할 에러
}

func (c *fakeCommander) failWith(key string, err error) {
	if c.failures == nil {
		c.failures = make(map[string]error)
	}
	c.failures[key] = err
}

func (c *fakeCommander) injected(op, id string) error {
	if err, ok := c.failures[op+"/"+id]; ok {
		return err
	}
	return c.failures[op]
}

func (c *fakeCommander) MoveNote(_ context.Context, noteID string, x, y float64) error {
	if err := c.injected("move-note", noteID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "move-note", id: noteID, x: x, y: y})
	return nil
}

func (c *fakeCommander) MoveGroup(_ context.Context, groupID string, x, y float64) error {
	if err := c.injected("move-group", groupID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "move-group", id: groupID, x: x, y: y})
	return nil
}

func (c *fakeCommander) AttachToGroup(_ context.Context, noteID, groupID string) error {
	if err := c.injected("attach", noteID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "attach", id: noteID, groupID: groupID})
	return nil
}

func (c *fakeCommander) DetachFromGroup(_ context.Context, noteID string, x, y float64) error {
	if err := c.injected("detach", noteID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "detach", id: noteID, x: x, y: y})
	return nil
}

func (c *fakeCommander) CreateGroup(_ context.Context, boardID, name string, x, y float64) (string, error) {
	if err := c.injected("create-group", boardID); err != nil {
		return "", err
	}
	c.commands = append(c.commands, command{op: "create-group", id: boardID, groupID: name, x: x, y: y})
	return "new-group", nil
}

func (c *fakeCommander) DeleteGroup(_ context.Context, groupID string) error {
	if err := c.injected("delete-group", groupID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "delete-group", id: groupID})
	return nil
}

func (c *fakeCommander) ReorderGroup(_ context.Context, orderedNoteIDs []string, groupID string) error {
	if err := c.injected("reorder", groupID); err != nil {
		return err
	}
	c.commands = append(c.commands, command{op: "reorder", groupID: groupID, ids: orderedNoteIDs})
	return nil
}

func newEngine() (*Engine, *fakeSnapshot, *fakeCommander) {
	snap := newFakeSnapshot()
	cmd := &fakeCommander{}
	return NewEngine(snap, cmd), snap, cmd
}

func TestMoveStandaloneNote(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 100, 200, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 30, DeltaY: -50,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeMoveNote, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "move-note", id: "n1", x: 130, y: 150}, cmd.commands[0])
}

func TestMoveGroupCarriesMembers(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 50, 60)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectGroup, SubjectID: "g1", DeltaX: 10, DeltaY: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeMoveGroup, out)
	// 멤버 위치는 그룹 기준이라 그룹 이동 커맨드 하나면 충분하다
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "move-group", id: "g1", x: 60, y: 70}, cmd.commands[0])
}

func TestGroupedNoteDroppedNowhereLeavesGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 400, 300)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 25, DeltaY: 35,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeLeaveGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "detach", id: "n1", x: 425, y: 335}, cmd.commands[0])
}

func TestReorderWithinGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	base := time.Now()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addNote("a", "b1", 0, 0, "g1", 0, base)
	snap.addNote("b", "b1", 0, 0, "g1", 1, base.Add(time.Second))
	snap.addNote("c", "b1", 0, 0, "g1", 2, base.Add(2*time.Second))

	// index 0의 멤버를 index 2로
	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "a",
		TargetKind: TargetNote, TargetID: "c",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeReorder, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, "reorder", cmd.commands[0].op)
	assert.Equal(t, "g1", cmd.commands[0].groupID)
	assert.Equal(t, []string{"b", "c", "a"}, cmd.commands[0].ids)
}

func TestCrossGroupDirectMove(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addGroup("g2", "b1", 500, 0)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())
	snap.addNote("n2", "b1", 0, 0, "g2", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetNote, TargetID: "n2",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeJoinGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "attach", id: "n1", groupID: "g2"}, cmd.commands[0])
}

func TestGroupedNoteOntoOtherGroupZone(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addGroup("g2", "b1", 500, 0)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetGroupZone, TargetID: "g2",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeJoinGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "attach", id: "n1", groupID: "g2"}, cmd.commands[0])
}

func TestGroupedNoteOntoOwnGroupZoneIsNoop(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetGroupZone, TargetID: "g1",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

func TestGroupedNoteOntoStandaloneNoteLeavesGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 200, 100)
	snap.addNote("n1", "b1", 0, 0, "g1", 0, time.Now())
	snap.addNote("n2", "b1", 900, 900, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 40, DeltaY: 0,
		TargetKind: TargetNote, TargetID: "n2",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeLeaveGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "detach", id: "n1", x: 240, y: 100}, cmd.commands[0])
}

func TestStandaloneNoteJoinsGroupZone(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addNote("n1", "b1", 10, 10, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetGroupZone, TargetID: "g1",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeJoinGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "attach", id: "n1", groupID: "g1"}, cmd.commands[0])
}

func TestStandaloneNoteJoinsGroupedNotesGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 0, 0)
	snap.addNote("n1", "b1", 10, 10, "", -1, time.Now())
	snap.addNote("n2", "b1", 0, 0, "g1", 0, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetNote, TargetID: "n2",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeJoinGroup, out)
	require.Len(t, cmd.commands, 1)
	assert.Equal(t, command{op: "attach", id: "n1", groupID: "g1"}, cmd.commands[0])
}

func TestMergeTwoStandaloneNotesCreatesGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 10, 10, "", -1, time.Now())
	snap.addNote("n2", "b1", 300, 400, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetNote, TargetID: "n2",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreateGroup, out)
	require.Len(t, cmd.commands, 3)

	// 대상 노트의 드래그 전 위치가 앵커
	assert.Equal(t, command{op: "create-group", id: "b1", groupID: model.DefaultGroupName, x: 300, y: 400}, cmd.commands[0])
	assert.Equal(t, command{op: "attach", id: "n1", groupID: "new-group"}, cmd.commands[1])
	assert.Equal(t, command{op: "attach", id: "n2", groupID: "new-group"}, cmd.commands[2])
}

func TestDropOnSelfIsNoop(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 10, 10, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetNote, TargetID: "n1",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

func TestMissingSubjectIsNoop(t *testing.T) {
	eng, _, cmd := newEngine()

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "ghost", DeltaX: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)

	out, err = eng.ResolveDrag(context.Background(), Gesture{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
}

func TestTargetDeletedMidDragIsNoop(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 10, 10, "", -1, time.Now())

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1",
		TargetKind: TargetNote, TargetID: "deleted",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

func TestDisbandScattersMembersAndDeletesGroup(t *testing.T) {
	eng, snap, cmd := newEngine()
	base := time.Now()
	snap.addGroup("g1", "b1", 1000, 2000)
	for i := 0; i < 5; i++ {
		snap.addNote(fmt.Sprintf("n%d", i), "b1", 0, 0, "g1", i, base.Add(time.Duration(i)*time.Second))
	}

	out, err := eng.Disband(context.Background(), "g1")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDisband, out)
	require.Len(t, cmd.commands, 6)

	// (i%3)*100, (i/3)*100 격자
	want := []command{
		{op: "detach", id: "n0", x: 1000, y: 2000},
		{op: "detach", id: "n1", x: 1100, y: 2000},
		{op: "detach", id: "n2", x: 1200, y: 2000},
		{op: "detach", id: "n3", x: 1000, y: 2100},
		{op: "detach", id: "n4", x: 1100, y: 2100},
	}
	assert.Equal(t, want, cmd.commands[:5])
	assert.Equal(t, command{op: "delete-group", id: "g1"}, cmd.commands[5])
}

func TestDisbandMissingGroupIsNoop(t *testing.T) {
	eng, _, cmd := newEngine()

	out, err := eng.Disband(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

func TestArrayMove(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		from, to int
		want     []string
	}{
		{"first to last", []string{"a", "b", "c"}, 0, 2, []string{"b", "c", "a"}},
		{"last to first", []string{"a", "b", "c"}, 2, 0, []string{"c", "a", "b"}},
		{"adjacent", []string{"a", "b", "c", "d"}, 1, 2, []string{"a", "c", "b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arrayMove(tt.ids, tt.from, tt.to))
		})
	}
}

// 스냅샷 읽기와 쓰기 사이에 다른 참가자가 대상을 지운 경우: 엔진은 에러를
// 올리지 않고 no-op으로 강등해야 한다.
func TestNoteVanishedMidWriteIsNoop(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 100, 200, "", -1, time.Now())
	cmd.failWith("move-note/n1", fmt.Errorf("note %w", ErrNotFound))

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 30, DeltaY: -50,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

func TestGroupVanishedMidAttachIsNoop(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 0, 0, "", -1, time.Now())
	snap.addGroup("g1", "b1", 300, 300)
	cmd.failWith("attach", fmt.Errorf("group %w", ErrNotFound))

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 10, DeltaY: 10,
		TargetKind: TargetGroupZone, TargetID: "g1",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, out)
	assert.Empty(t, cmd.commands)
}

// not-found가 아닌 커맨드 실패는 그대로 호출자에게 올라가야 한다.
func TestCommandFailureSurfaces(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addNote("n1", "b1", 100, 200, "", -1, time.Now())
	cmd.failWith("move-note/n1", fmt.Errorf("connection reset"))

	out, err := eng.ResolveDrag(context.Background(), Gesture{
		SubjectKind: SubjectNote, SubjectID: "n1", DeltaX: 30, DeltaY: -50,
	})

	require.Error(t, err)
	assert.Equal(t, OutcomeNone, out)
}

// 해체 도중 멤버 하나가 지워져도 나머지 멤버는 흩어 놓고 그룹은 지워야 한다.
func TestDisbandSkipsVanishedMember(t *testing.T) {
	eng, snap, cmd := newEngine()
	snap.addGroup("g1", "b1", 1000, 2000)
	base := time.Now()
	snap.addNote("m1", "b1", 0, 0, "g1", 0, base)
	snap.addNote("m2", "b1", 0, 0, "g1", 1, base.Add(time.Second))
	snap.addNote("m3", "b1", 0, 0, "g1", 2, base.Add(2*time.Second))
	cmd.failWith("detach/m2", fmt.Errorf("note %w", ErrNotFound))

	out, err := eng.Disband(context.Background(), "g1")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDisband, out)
	require.Len(t, cmd.commands, 3)
	assert.Equal(t, command{op: "detach", id: "m1", x: 1000, y: 2000}, cmd.commands[0])
	assert.Equal(t, command{op: "detach", id: "m3", x: 1200, y: 2000}, cmd.commands[1])
	assert.Equal(t, command{op: "delete-group", id: "g1"}, cmd.commands[2])
}

// 병합 직전 어느 한쪽이 이미 그룹에 속해 있으면 새 그룹을 만들지 않는다.
func TestMergeRefusedWhenEitherSideAlreadyGrouped(t *testing.T) {
	gid := "g1"
	free := model.Note{ID: "n1", BoardID: "b1", X: 100, Y: 100}
	grouped := model.Note{ID: "n2", BoardID: "b1", X: 300, Y: 400, GroupID: &gid}

	tests := []struct {
		name            string
		subject, target model.Note
	}{
		{"target grouped", free, grouped},
		{"subject grouped", grouped, free},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, cmd := newEngine()

			out, err := eng.mergeIntoNewGroup(context.Background(), tt.subject, tt.target)

			require.NoError(t, err)
			assert.Equal(t, OutcomeNone, out)
			assert.Empty(t, cmd.commands)
		})
	}
}
