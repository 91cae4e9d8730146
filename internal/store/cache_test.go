package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stickyboard-backend/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestSnapshotExcludesArchivedNotes(t *testing.T) {
	snap := NewBoardSnapshot()
	snap.ApplyNotes([]model.Note{
		{ID: "live", BoardID: "b1"},
		{ID: "trash", BoardID: "b1", IsArchived: true},
	})

	_, ok := snap.NoteByID("live")
	assert.True(t, ok)
	_, ok = snap.NoteByID("trash")
	assert.False(t, ok)
	assert.Len(t, snap.Notes(), 1)
}

func TestSnapshotApplyReplacesCollection(t *testing.T) {
	snap := NewBoardSnapshot()
	snap.ApplyNotes([]model.Note{{ID: "n1"}, {ID: "n2"}})
	snap.ApplyNotes([]model.Note{{ID: "n2"}})

	_, ok := snap.NoteByID("n1")
	assert.False(t, ok, "removed note must disappear after a full push")
	_, ok = snap.NoteByID("n2")
	assert.True(t, ok)

	snap.ApplyGroups([]model.Group{{ID: "g1"}})
	snap.ApplyGroups(nil)
	assert.Empty(t, snap.Groups())
}

func TestGroupMembersDisplayOrder(t *testing.T) {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	snap := NewBoardSnapshot()
	snap.ApplyNotes([]model.Note{
		// order 미설정 → 맨 뒤, 동순위는 생성 시각 순
		{ID: "late", GroupID: strPtr("g1"), CreatedAt: base.Add(3 * time.Hour)},
		{ID: "second", GroupID: strPtr("g1"), OrderInGroup: intPtr(1), CreatedAt: base},
		{ID: "first", GroupID: strPtr("g1"), OrderInGroup: intPtr(0), CreatedAt: base.Add(time.Hour)},
		{ID: "other", GroupID: strPtr("g2"), OrderInGroup: intPtr(0), CreatedAt: base},
		{ID: "free", CreatedAt: base},
	})

	members := snap.GroupMembers("g1")
	require.Len(t, members, 3)

	ids := []string{members[0].ID, members[1].ID, members[2].ID}
	assert.Equal(t, []string{"first", "second", "late"}, ids)
}

func TestGroupMembersMissingGroupIsEmpty(t *testing.T) {
	snap := NewBoardSnapshot()
	assert.Empty(t, snap.GroupMembers("ghost"))
}

func TestToggleLikeRoundTrip(t *testing.T) {
	likes := model.StringList{"alice"}

	likes = model.ToggleLike(likes, "bob")
	assert.ElementsMatch(t, model.StringList{"alice", "bob"}, likes)

	likes = model.ToggleLike(likes, "bob")
	assert.ElementsMatch(t, model.StringList{"alice"}, likes)

	// 멱등: 없는 ID 제거 후 재추가해도 집합 의미는 동일
	likes = model.ToggleLike(model.ToggleLike(likes, "carol"), "carol")
	assert.ElementsMatch(t, model.StringList{"alice"}, likes)
}
