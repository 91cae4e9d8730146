package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"stickyboard-backend/internal/grouping"
	"stickyboard-backend/internal/store"
)

// GroupHandler 그룹 관리 핸들러. 해체와 재정렬은 GroupingEngine을 거친다.
type GroupHandler struct {
	store *store.BoardStore
	hub   *BoardHub
}

// NewGroupHandler GroupHandler 생성
func NewGroupHandler(st *store.BoardStore, hub *BoardHub) *GroupHandler {
	return &GroupHandler{store: st, hub: hub}
}

// CreateGroupRequest 그룹 생성 요청
type CreateGroupRequest struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CreateGroup POST /api/boards/:boardId/groups
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	group, err := h.store.CreateGroup(c.Context(), boardID, req.Name, req.X, req.Y)
	if err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create group"})
	}

	h.hub.Broadcast(boardID, FeedGroups)
	return c.Status(fiber.StatusCreated).JSON(group)
}

// UpdateGroup PATCH /api/boards/:boardId/groups/:groupId
// 이름 변경과 위치 이동
func (h *GroupHandler) UpdateGroup(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	groupID := c.Params("groupId")

	var u store.GroupUpdate
	if err := c.BodyParser(&u); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	group, err := h.store.UpdateGroup(c.Context(), groupID, u)
	if err != nil {
		if errors.Is(err, store.ErrGroupNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update group"})
	}

	h.hub.Broadcast(boardID, FeedGroups)
	return c.JSON(group)
}

// DisbandGroup DELETE /api/boards/:boardId/groups/:groupId
// 멤버를 격자로 흩어 놓고 그룹 레코드를 삭제한다. 노트는 살아남는다.
func (h *GroupHandler) DisbandGroup(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	groupID := c.Params("groupId")

	snapshot, err := h.hub.Snapshot(c.Context(), boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load board state"})
	}

	engine := grouping.NewEngine(snapshot, h.store.Commander())
	outcome, err := engine.Disband(c.Context(), groupID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to disband group"})
	}

	log.Printf("[Group] 해체: board=%s group=%s outcome=%s", boardID, groupID, outcome)
	h.hub.Broadcast(boardID, FeedNotes, FeedGroups)
	return c.JSON(fiber.Map{"success": true, "outcome": outcome})
}

// ReorderRequest 그룹 내 표시 순서 확정 요청
type ReorderRequest struct {
	NoteIDs []string `json:"note_ids"`
}

// ReorderGroup PUT /api/boards/:boardId/groups/:groupId/order
func (h *GroupHandler) ReorderGroup(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	groupID := c.Params("groupId")

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.NoteIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "note_ids is required"})
	}

	if err := h.store.ReorderGroup(c.Context(), req.NoteIDs, groupID); err != nil {
		switch {
		case errors.Is(err, store.ErrGroupNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
		case errors.Is(err, store.ErrNoteNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reorder group"})
	}

	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(fiber.Map{"success": true})
}

// GetGroupMembers GET /api/boards/:boardId/groups/:groupId/members
// 표시 순서로 정렬된 멤버 목록
func (h *GroupHandler) GetGroupMembers(c *fiber.Ctx) error {
	groupID := c.Params("groupId")

	if _, err := h.store.GetGroup(c.Context(), groupID); err != nil {
		if errors.Is(err, store.ErrGroupNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch group"})
	}

	members, err := h.store.GroupMembers(c.Context(), groupID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list members"})
	}
	return c.JSON(fiber.Map{"members": members})
}
