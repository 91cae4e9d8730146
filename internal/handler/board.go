package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"stickyboard-backend/internal/auth"
	"stickyboard-backend/internal/presence"
	"stickyboard-backend/internal/store"
)

// BoardHandler 보드 수명주기 + 참가 핸들러
type BoardHandler struct {
	store      *store.BoardStore
	hub        *BoardHub
	presence   *presence.Manager
	jwtManager *auth.JWTManager
}

// NewBoardHandler BoardHandler 생성
func NewBoardHandler(st *store.BoardStore, hub *BoardHub, pm *presence.Manager, jm *auth.JWTManager) *BoardHandler {
	return &BoardHandler{store: st, hub: hub, presence: pm, jwtManager: jm}
}

// CreateBoard POST /api/boards
func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	var in store.CreateBoardInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if in.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "board name is required"})
	}

	// 생성자는 인증 전이므로 클라이언트가 가져온 식별자를 쓴다 (없으면 익명)
	in.CreatedBy = c.Get("X-Client-Id", "anonymous")

	board, err := h.store.CreateBoard(c.Context(), in)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create board"})
	}

	log.Printf("[Board] 생성: id=%s name=%s", board.ID, board.Name)
	return c.Status(fiber.StatusCreated).JSON(board)
}

// ListBoards GET /api/boards?created_by=<clientId>
func (h *BoardHandler) ListBoards(c *fiber.Ctx) error {
	summaries, err := h.store.ListBoards(c.Context(), c.Query("created_by"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list boards"})
	}
	return c.JSON(fiber.Map{"boards": summaries})
}

// GetBoard GET /api/boards/:boardId
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	board, err := h.store.GetBoard(c.Context(), c.Params("boardId"))
	if err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch board"})
	}
	return c.JSON(board)
}

// DeleteBoard DELETE /api/boards/:boardId
func (h *BoardHandler) DeleteBoard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	if err := h.store.DeleteBoard(c.Context(), boardID); err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete board"})
	}

	log.Printf("[Board] 삭제: id=%s", boardID)
	return c.JSON(fiber.Map{"success": true})
}

// JoinRequest 보드 참가 요청
type JoinRequest struct {
	Nickname string `json:"nickname"`
}

// JoinBoard POST /api/boards/:boardId/join
// 참가자 레코드를 만들고 이후 요청을 게이트할 세션 토큰을 발급한다.
func (h *BoardHandler) JoinBoard(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	var req JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Nickname == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nickname is required"})
	}

	participant, err := h.store.JoinBoard(c.Context(), boardID, req.Nickname)
	if err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join board"})
	}

	token, err := h.jwtManager.GenerateSessionToken(participant.ClientID, boardID, participant.Nickname)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue session token"})
	}

	h.hub.Broadcast(boardID, FeedParticipants)
	log.Printf("[Board] 참가: board=%s client=%s nickname=%s", boardID, participant.ClientID, participant.Nickname)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"participant": participant,
		"token":       token,
	})
}

// ListParticipants GET /api/boards/:boardId/participants
// DB 참가자 목록에 Redis 온라인 여부를 덧붙인다.
func (h *BoardHandler) ListParticipants(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	participants, err := h.store.ListParticipants(c.Context(), boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list participants"})
	}

	online := map[string]bool{}
	if presences, err := h.presence.OnlineClients(c.Context(), boardID); err == nil {
		for _, p := range presences {
			online[p.ClientID] = true
		}
	}

	type participantView struct {
		ID          string `json:"id"`
		ClientID    string `json:"client_id"`
		Nickname    string `json:"nickname"`
		AvatarColor string `json:"avatar_color"`
		IsOnline    bool   `json:"is_online"`
	}

	views := make([]participantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, participantView{
			ID:          p.ID,
			ClientID:    p.ClientID,
			Nickname:    p.Nickname,
			AvatarColor: p.AvatarColor,
			IsOnline:    online[p.ClientID],
		})
	}

	return c.JSON(fiber.Map{"participants": views})
}

// TimerRequest 타이머 시작 요청
type TimerRequest struct {
	Minutes int `json:"minutes"`
}

// StartTimer POST /api/boards/:boardId/timer
func (h *BoardHandler) StartTimer(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	var req TimerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Minutes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "minutes must be positive"})
	}

	if err := h.store.StartTimer(c.Context(), boardID, req.Minutes); err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start timer"})
	}

	h.hub.Broadcast(boardID, FeedBoard)
	return c.JSON(fiber.Map{"success": true})
}

// ResetTimer DELETE /api/boards/:boardId/timer
func (h *BoardHandler) ResetTimer(c *fiber.Ctx) error {
	boardID := c.Params("boardId")

	if err := h.store.ResetTimer(c.Context(), boardID); err != nil {
		if errors.Is(err, store.ErrBoardNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to reset timer"})
	}

	h.hub.Broadcast(boardID, FeedBoard)
	return c.JSON(fiber.Map{"success": true})
}
