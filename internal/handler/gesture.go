package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"stickyboard-backend/internal/grouping"
	"stickyboard-backend/internal/store"
)

// GestureHandler 드래그 완료 핸들러. 클라이언트는 제스처의 원시 기술만
// 보내고, 의미 판정은 전부 서버의 GroupingEngine이 한다.
type GestureHandler struct {
	store *store.BoardStore
	hub   *BoardHub
}

// NewGestureHandler GestureHandler 생성
func NewGestureHandler(st *store.BoardStore, hub *BoardHub) *GestureHandler {
	return &GestureHandler{store: st, hub: hub}
}

// ResolveDrag POST /api/boards/:boardId/gestures/drag
func (h *GestureHandler) ResolveDrag(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	var gesture grouping.Gesture
	if err := c.BodyParser(&gesture); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if gesture.SubjectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subject_id is required"})
	}
	if gesture.SubjectKind != grouping.SubjectNote && gesture.SubjectKind != grouping.SubjectGroup {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subject_kind must be note or group"})
	}

	snapshot, err := h.hub.Snapshot(c.Context(), boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load board state"})
	}

	engine := grouping.NewEngine(snapshot, h.store.Commander())
	outcome, err := engine.ResolveDrag(c.Context(), gesture)
	if err != nil {
		log.Printf("[Gesture] resolve failed: board=%s subject=%s err=%v", boardID, gesture.SubjectID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve drag"})
	}

	// 어떤 결과든 노트/그룹 어느 쪽이 바뀌었을 수 있으니 둘 다 팬아웃
	if outcome != grouping.OutcomeNone {
		h.hub.Broadcast(boardID, FeedNotes, FeedGroups)
	}

	return c.JSON(fiber.Map{"outcome": outcome})
}
