package handler

import (
	"github.com/gofiber/fiber/v2"

	"stickyboard-backend/internal/canvas"
	"stickyboard-backend/internal/model"
	"stickyboard-backend/internal/store"
)

// CanvasHandler fit-to-content 프레이밍 계산 핸들러
type CanvasHandler struct {
	store *store.BoardStore
	opts  canvas.Options
}

// NewCanvasHandler CanvasHandler 생성
func NewCanvasHandler(st *store.BoardStore, opts canvas.Options) *CanvasHandler {
	return &CanvasHandler{store: st, opts: opts}
}

// FitRequest 뷰포트 크기
type FitRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FitToContent POST /api/boards/:boardId/fit
// 현재 보드 콘텐츠 전체가 패딩을 두고 들어오는 변환을 계산해 돌려준다.
// 그룹 멤버 노트는 그룹 풋프린트에 포함되므로 따로 세지 않는다.
func (h *CanvasHandler) FitToContent(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	var req FitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Width <= 0 || req.Height <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "viewport size must be positive"})
	}

	notes, err := h.store.ListNotes(c.Context(), boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load notes"})
	}
	groups, err := h.store.ListGroups(c.Context(), boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load groups"})
	}

	memberCounts := make(map[string]int)
	var content []canvas.Rect
	for _, n := range notes {
		if n.IsGrouped() {
			memberCounts[*n.GroupID]++
			continue
		}
		content = append(content, canvas.Rect{
			X: n.X, Y: n.Y,
			Width: model.NoteWidth, Height: model.NoteHeight,
		})
	}
	for _, g := range groups {
		w, ht := model.GroupFootprint(memberCounts[g.ID])
		content = append(content, canvas.Rect{X: g.X, Y: g.Y, Width: w, Height: ht})
	}

	t := canvas.New(h.opts)
	t.FitToContent(content, canvas.Size{Width: req.Width, Height: req.Height})

	return c.JSON(fiber.Map{
		"scale":    t.Scale(),
		"position": t.Position(),
	})
}
