package store

import (
	"sync"

	"stickyboard-backend/internal/model"
)

// BoardSnapshot is the in-memory reflection of one board's live collections.
// Apply* replaces whole collections, matching the full-collection push the
// live feed delivers after every mutation. Archived notes never enter the
// snapshot. Safe for concurrent readers.
type BoardSnapshot struct {
	mu     sync.RWMutex
	notes  map[string]model.Note
	groups map[string]model.Group
}

// NewBoardSnapshot 빈 스냅샷 생성
func NewBoardSnapshot() *BoardSnapshot {
	return &BoardSnapshot{
		notes:  make(map[string]model.Note),
		groups: make(map[string]model.Group),
	}
}

// ApplyNotes 노트 컬렉션 전체 교체. 보관 노트는 걸러낸다.
func (c *BoardSnapshot) ApplyNotes(notes []model.Note) {
	next := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		if n.IsArchived {
			continue
		}
		next[n.ID] = n
	}

	c.mu.Lock()
	c.notes = next
	c.mu.Unlock()
}

// ApplyGroups 그룹 컬렉션 전체 교체
func (c *BoardSnapshot) ApplyGroups(groups []model.Group) {
	next := make(map[string]model.Group, len(groups))
	for _, g := range groups {
		next[g.ID] = g
	}

	c.mu.Lock()
	c.groups = next
	c.mu.Unlock()
}

// NoteByID grouping.Snapshot 구현
func (c *BoardSnapshot) NoteByID(id string) (model.Note, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.notes[id]
	return n, ok
}

// GroupByID grouping.Snapshot 구현
func (c *BoardSnapshot) GroupByID(id string) (model.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[id]
	return g, ok
}

// GroupMembers 그룹 멤버를 표시 순서로 반환 (grouping.Snapshot 구현)
func (c *BoardSnapshot) GroupMembers(groupID string) []model.Note {
	c.mu.RLock()
	var members []model.Note
	for _, n := range c.notes {
		if n.GroupID != nil && *n.GroupID == groupID {
			members = append(members, n)
		}
	}
	c.mu.RUnlock()

	return model.SortGroupMembers(members)
}

// Notes 현재 노트 전체 (순서 비보장)
func (c *BoardSnapshot) Notes() []model.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Note, 0, len(c.notes))
	for _, n := range c.notes {
		out = append(out, n)
	}
	return out
}

// Groups 현재 그룹 전체 (순서 비보장)
func (c *BoardSnapshot) Groups() []model.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Group, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g)
	}
	return out
}
