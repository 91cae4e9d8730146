package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"stickyboard-backend/internal/store"
)

// NoteHandler 노트 CRUD/좋아요/휴지통 핸들러
type NoteHandler struct {
	store *store.BoardStore
	hub   *BoardHub
}

// NewNoteHandler NoteHandler 생성
func NewNoteHandler(st *store.BoardStore, hub *BoardHub) *NoteHandler {
	return &NoteHandler{store: st, hub: hub}
}

// CreateNote POST /api/boards/:boardId/notes
func (h *NoteHandler) CreateNote(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	clientID, _ := c.Locals("clientID").(string)
	nickname, _ := c.Locals("nickname").(string)

	var in store.CreateNoteInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	in.BoardID = boardID
	in.AuthorID = clientID
	if in.AuthorName == "" {
		in.AuthorName = nickname
	}

	note, err := h.store.CreateNote(c.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyContent), errors.Is(err, store.ErrContentTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, store.ErrBoardNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create note"})
	}

	h.hub.Broadcast(boardID, FeedNotes)
	return c.Status(fiber.StatusCreated).JSON(note)
}

// UpdateNote PATCH /api/boards/:boardId/notes/:noteId
func (h *NoteHandler) UpdateNote(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	noteID := c.Params("noteId")

	var u store.NoteUpdate
	if err := c.BodyParser(&u); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	note, err := h.store.UpdateNote(c.Context(), noteID, u)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyContent), errors.Is(err, store.ErrContentTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, store.ErrNoteNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update note"})
	}

	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(note)
}

// ToggleLike POST /api/boards/:boardId/notes/:noteId/like
func (h *NoteHandler) ToggleLike(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	noteID := c.Params("noteId")
	clientID, _ := c.Locals("clientID").(string)

	note, err := h.store.ToggleLike(c.Context(), noteID, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to toggle like"})
	}

	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(fiber.Map{
		"note_id": noteID,
		"likes":   note.Likes,
	})
}

// ArchiveNote POST /api/boards/:boardId/notes/:noteId/archive
func (h *NoteHandler) ArchiveNote(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	noteID := c.Params("noteId")

	if err := h.store.ArchiveNote(c.Context(), noteID); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to archive note"})
	}

	log.Printf("[Note] 보관: board=%s note=%s", boardID, noteID)
	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(fiber.Map{"success": true})
}

// RestoreNote POST /api/boards/:boardId/notes/:noteId/restore
func (h *NoteHandler) RestoreNote(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	noteID := c.Params("noteId")

	if err := h.store.RestoreNote(c.Context(), noteID); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to restore note"})
	}

	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(fiber.Map{"success": true})
}

// DeleteNote DELETE /api/boards/:boardId/notes/:noteId
// 휴지통 비우기용 영구 삭제
func (h *NoteHandler) DeleteNote(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	noteID := c.Params("noteId")

	if err := h.store.DeleteNote(c.Context(), noteID); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete note"})
	}

	log.Printf("[Note] 영구 삭제: board=%s note=%s", boardID, noteID)
	h.hub.Broadcast(boardID, FeedNotes)
	return c.JSON(fiber.Map{"success": true})
}

// ListArchivedNotes GET /api/boards/:boardId/notes/archived
func (h *NoteHandler) ListArchivedNotes(c *fiber.Ctx) error {
	notes, err := h.store.ListArchivedNotes(c.Context(), c.Params("boardId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list archived notes"})
	}
	return c.JSON(fiber.Map{"notes": notes})
}
