// Package store provides the persistence layer for boards and their child
// collections, plus the in-memory per-board snapshot the grouping engine
// reads. Writes go through BoardStore; reads for drag resolution go through
// BoardSnapshot.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stickyboard-backend/internal/grouping"
	"stickyboard-backend/internal/model"
)

// 핸들러가 fiber 에러 코드로 매핑하는 센티널 에러. not-found 계열은
// grouping.ErrNotFound를 감싸서 엔진이 쓰기 경합을 no-op으로 강등할 수 있게 한다.
var (
	ErrBoardNotFound       = fmt.Errorf("board %w", grouping.ErrNotFound)
	ErrNoteNotFound        = fmt.Errorf("note %w", grouping.ErrNotFound)
	ErrGroupNotFound       = fmt.Errorf("group %w", grouping.ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", grouping.ErrNotFound)
	ErrEmptyContent        = errors.New("note content is empty")
	ErrContentTooLong      = fmt.Errorf("note content exceeds %d characters", model.MaxNoteContentLen)
)

// BoardStore 보드/노트/그룹/참가자 영속 계층
type BoardStore struct {
	db *gorm.DB
}

// NewBoardStore BoardStore 생성
func NewBoardStore(db *gorm.DB) *BoardStore {
	return &BoardStore{db: db}
}

// Commander returns the mutation interface the grouping engine drives.
func (s *BoardStore) Commander() grouping.Commander {
	return commandAdapter{s}
}

// commandAdapter CreateGroup의 반환 타입만 다르고 나머지는 BoardStore 그대로
type commandAdapter struct {
	*BoardStore
}

func (a commandAdapter) CreateGroup(ctx context.Context, boardID, name string, x, y float64) (string, error) {
	g, err := a.BoardStore.CreateGroup(ctx, boardID, name, x, y)
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

// ===== 보드 =====

// CreateBoardInput 보드 생성 요청
type CreateBoardInput struct {
	Name        string  `json:"name"`
	TeamName    *string `json:"team_name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
	CreatedBy   string  `json:"-"`
}

// CreateBoard 새 보드 생성
func (s *BoardStore) CreateBoard(ctx context.Context, in CreateBoardInput) (*model.Board, error) {
	if in.Name == "" {
		return nil, errors.New("board name is required")
	}

	board := &model.Board{
		ID:          uuid.New().String(),
		Name:        in.Name,
		TeamName:    in.TeamName,
		Description: in.Description,
		IsAnonymous: in.IsAnonymous,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(board).Error; err != nil {
		return nil, err
	}
	return board, nil
}

// GetBoard 보드 단건 조회
func (s *BoardStore) GetBoard(ctx context.Context, boardID string) (*model.Board, error) {
	var board model.Board
	err := s.db.WithContext(ctx).First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// BoardSummary 목록 화면용 보드 + 통계
type BoardSummary struct {
	model.Board
	NoteCount        int64 `json:"note_count"`
	ParticipantCount int64 `json:"participant_count"`
}

// ListBoards 보드 목록 조회. createdBy가 비어 있지 않으면 내가 만든 보드만.
func (s *BoardStore) ListBoards(ctx context.Context, createdBy string) ([]BoardSummary, error) {
	q := s.db.WithContext(ctx).Model(&model.Board{}).Order("updated_at DESC")
	if createdBy != "" {
		q = q.Where("created_by = ?", createdBy)
	}

	var boards []model.Board
	if err := q.Find(&boards).Error; err != nil {
		return nil, err
	}

	summaries := make([]BoardSummary, 0, len(boards))
	for _, b := range boards {
		var noteCount, participantCount int64
		s.db.WithContext(ctx).Model(&model.Note{}).
			Where("board_id = ? AND is_archived = ?", b.ID, false).
			Count(&noteCount)
		s.db.WithContext(ctx).Model(&model.Participant{}).
			Where("board_id = ?", b.ID).
			Count(&participantCount)
		summaries = append(summaries, BoardSummary{
			Board:            b,
			NoteCount:        noteCount,
			ParticipantCount: participantCount,
		})
	}
	return summaries, nil
}

// DeleteBoard 보드와 모든 하위 레코드를 삭제한다
func (s *BoardStore) DeleteBoard(ctx context.Context, boardID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBoard(tx, boardID); err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Note{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Group{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Board{}, "id = ?", boardID).Error
	})
}

// StartTimer 보드 타이머 시작
func (s *BoardStore) StartTimer(ctx context.Context, boardID string, minutes int) error {
	if minutes <= 0 {
		return errors.New("timer minutes must be positive")
	}
	now := time.Now()
	return s.updateBoard(ctx, boardID, map[string]interface{}{
		"timer_minutes":    minutes,
		"timer_started_at": now,
	})
}

// ResetTimer 보드 타이머 해제
func (s *BoardStore) ResetTimer(ctx context.Context, boardID string) error {
	return s.updateBoard(ctx, boardID, map[string]interface{}{
		"timer_minutes":    nil,
		"timer_started_at": nil,
	})
}

func (s *BoardStore) updateBoard(ctx context.Context, boardID string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", boardID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// ===== 노트 =====

// CreateNoteInput 노트 생성 요청
type CreateNoteInput struct {
	BoardID    string  `json:"-"`
	Content    string  `json:"content"`
	AuthorID   string  `json:"-"`
	AuthorName string  `json:"author_name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Color      *string `json:"color,omitempty"`
}

// CreateNote 새 노트 생성. 본문은 비어 있으면 안 되고 500자를 넘을 수 없다.
func (s *BoardStore) CreateNote(ctx context.Context, in CreateNoteInput) (*model.Note, error) {
	if in.Content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(in.Content) > model.MaxNoteContentLen {
		return nil, ErrContentTooLong
	}

	note := &model.Note{
		ID:         uuid.New().String(),
		BoardID:    in.BoardID,
		Content:    in.Content,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		X:          in.X,
		Y:          in.Y,
		Color:      in.Color,
		Likes:      model.StringList{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBoard(tx, in.BoardID); err != nil {
			return err
		}
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		return touchBoard(tx, in.BoardID)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// NoteUpdate 부분 갱신. nil 포인터는 "건드리지 않음", Clear 플래그는
// "명시적으로 비움"을 뜻한다. 두 의미는 절대 섞이지 않는다.
type NoteUpdate struct {
	Content      *string  `json:"content,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Color        *string  `json:"color,omitempty"`
	GroupID      *string  `json:"group_id,omitempty"`
	OrderInGroup *int     `json:"order_in_group,omitempty"`
	ClearGroup   bool     `json:"clear_group,omitempty"` // groupId + orderInGroup 동시 해제
	ClearOrder   bool     `json:"clear_order,omitempty"`
	ClearColor   bool     `json:"clear_color,omitempty"`
}

// UpdateNote 노트 부분 갱신
func (s *BoardStore) UpdateNote(ctx context.Context, noteID string, u NoteUpdate) (*model.Note, error) {
	fields := map[string]interface{}{}
	if u.Content != nil {
		if *u.Content == "" {
			return nil, ErrEmptyContent
		}
		if utf8.RuneCountInString(*u.Content) > model.MaxNoteContentLen {
			return nil, ErrContentTooLong
		}
		fields["content"] = *u.Content
	}
	if u.X != nil {
		fields["x"] = *u.X
	}
	if u.Y != nil {
		fields["y"] = *u.Y
	}
	if u.Color != nil {
		fields["color"] = *u.Color
	}
	if u.GroupID != nil {
		fields["group_id"] = *u.GroupID
	}
	if u.OrderInGroup != nil {
		fields["order_in_group"] = *u.OrderInGroup
	}
	if u.ClearGroup {
		fields["group_id"] = nil
		fields["order_in_group"] = nil
	}
	if u.ClearOrder {
		fields["order_in_group"] = nil
	}
	if u.ClearColor {
		fields["color"] = nil
	}
	if len(fields) == 0 {
		return s.getNote(ctx, noteID)
	}

	var note *model.Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.applyNoteFields(tx, noteID, fields)
		if err != nil {
			return err
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// MoveNote 독립 노트 위치 갱신 (grouping.Commander)
func (s *BoardStore) MoveNote(ctx context.Context, noteID string, x, y float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.applyNoteFields(tx, noteID, map[string]interface{}{"x": x, "y": y})
		return err
	})
}

// AttachToGroup 그룹 편입. orderInGroup은 비워서 표시 순서 맨 뒤로 보낸다.
// (grouping.Commander)
func (s *BoardStore) AttachToGroup(ctx context.Context, noteID, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.Group
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		_, err := s.applyNoteFields(tx, noteID, map[string]interface{}{
			"group_id":       groupID,
			"order_in_group": nil,
		})
		return err
	})
}

// DetachFromGroup 그룹 이탈 + 새 위치 설정을 한 번의 쓰기로 처리한다.
// 멤버십 해제와 위치 설정이 분리되면 중간 상태가 브로드캐스트될 수 있다.
// (grouping.Commander)
func (s *BoardStore) DetachFromGroup(ctx context.Context, noteID string, x, y float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.applyNoteFields(tx, noteID, map[string]interface{}{
			"group_id":       nil,
			"order_in_group": nil,
			"x":              x,
			"y":              y,
		})
		return err
	})
}

// ToggleLike 좋아요 멱등 토글. 이미 눌렀으면 제거, 아니면 추가.
func (s *BoardStore) ToggleLike(ctx context.Context, noteID, clientID string) (*model.Note, error) {
	var note model.Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&note, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoteNotFound
			}
			return err
		}
		note.Likes = model.ToggleLike(note.Likes, clientID)
		if err := tx.Model(&model.Note{}).Where("id = ?", noteID).
			Update("likes", note.Likes).Error; err != nil {
			return err
		}
		return touchBoard(tx, note.BoardID)
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// ArchiveNote 노트를 휴지통으로 이동 (소프트 삭제)
func (s *BoardStore) ArchiveNote(ctx context.Context, noteID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.applyNoteFields(tx, noteID, map[string]interface{}{
			"is_archived": true,
			"archived_at": now,
			// 보관되는 노트는 그룹에서도 빠진다
			"group_id":       nil,
			"order_in_group": nil,
		})
		return err
	})
}

// RestoreNote 휴지통에서 복원. 보관 당시 위치 그대로 돌아온다.
func (s *BoardStore) RestoreNote(ctx context.Context, noteID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.applyNoteFields(tx, noteID, map[string]interface{}{
			"is_archived": false,
			"archived_at": nil,
		})
		return err
	})
}

// DeleteNote 영구 삭제 (휴지통 비우기)
func (s *BoardStore) DeleteNote(ctx context.Context, noteID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note model.Note
		if err := tx.First(&note, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoteNotFound
			}
			return err
		}
		if err := tx.Delete(&model.Note{}, "id = ?", noteID).Error; err != nil {
			return err
		}
		return touchBoard(tx, note.BoardID)
	})
}

// ListNotes 라이브 피드용 활성 노트 목록 (보관 노트 제외)
func (s *BoardStore) ListNotes(ctx context.Context, boardID string) ([]model.Note, error) {
	var notes []model.Note
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND is_archived = ?", boardID, false).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

// ListArchivedNotes 휴지통 목록 (최근 보관 순)
func (s *BoardStore) ListArchivedNotes(ctx context.Context, boardID string) ([]model.Note, error) {
	var notes []model.Note
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND is_archived = ?", boardID, true).
		Order("archived_at DESC").
		Find(&notes).Error
	return notes, err
}

func (s *BoardStore) getNote(ctx context.Context, noteID string) (*model.Note, error) {
	var note model.Note
	err := s.db.WithContext(ctx).First(&note, "id = ?", noteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// applyNoteFields 노트 필드 갱신 + 보드 updated_at 갱신. 트랜잭션 내부 전용.
func (s *BoardStore) applyNoteFields(tx *gorm.DB, noteID string, fields map[string]interface{}) (*model.Note, error) {
	var note model.Note
	if err := tx.First(&note, "id = ?", noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	if err := tx.Model(&note).Updates(fields).Error; err != nil {
		return nil, err
	}
	if err := touchBoard(tx, note.BoardID); err != nil {
		return nil, err
	}
	return &note, nil
}

// ===== 그룹 =====

// CreateGroup 새 그룹 생성
func (s *BoardStore) CreateGroup(ctx context.Context, boardID, name string, x, y float64) (*model.Group, error) {
	if name == "" {
		name = model.DefaultGroupName
	}
	group := &model.Group{
		ID:      uuid.New().String(),
		BoardID: boardID,
		Name:    name,
		X:       x,
		Y:       y,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBoard(tx, boardID); err != nil {
			return err
		}
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return touchBoard(tx, boardID)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GroupUpdate 그룹 부분 갱신 (이름 변경, 위치 이동)
type GroupUpdate struct {
	Name *string  `json:"name,omitempty"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
}

// UpdateGroup 그룹 부분 갱신
func (s *BoardStore) UpdateGroup(ctx context.Context, groupID string, u GroupUpdate) (*model.Group, error) {
	fields := map[string]interface{}{}
	if u.Name != nil {
		if *u.Name == "" {
			return nil, errors.New("group name cannot be empty")
		}
		fields["name"] = *u.Name
	}
	if u.X != nil {
		fields["x"] = *u.X
	}
	if u.Y != nil {
		fields["y"] = *u.Y
	}

	var group model.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&group).Updates(fields).Error; err != nil {
			return err
		}
		return touchBoard(tx, group.BoardID)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// MoveGroup 그룹 앵커 이동. 멤버 노트는 그룹 기준 상대 배치라 함께 움직인다.
// (grouping.Commander)
func (s *BoardStore) MoveGroup(ctx context.Context, groupID string, x, y float64) error {
	_, err := s.UpdateGroup(ctx, groupID, GroupUpdate{X: &x, Y: &y})
	return err
}

// DeleteGroup 그룹 레코드 삭제. 멤버 노트는 건드리지 않는다.
// 해체 절차가 먼저 멤버를 빼낸 뒤 호출한다. (grouping.Commander)
func (s *BoardStore) DeleteGroup(ctx context.Context, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.Group
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if err := tx.Delete(&model.Group{}, "id = ?", groupID).Error; err != nil {
			return err
		}
		return touchBoard(tx, group.BoardID)
	})
}

// ReorderGroup 표시 순서 확정. 인덱스가 곧 orderInGroup이 되고, 목록의 모든
// 노트가 해당 그룹 소속으로 보장된다. (grouping.Commander)
func (s *BoardStore) ReorderGroup(ctx context.Context, orderedNoteIDs []string, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.Group
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		for i, noteID := range orderedNoteIDs {
			res := tx.Model(&model.Note{}).Where("id = ?", noteID).Updates(map[string]interface{}{
				"group_id":       groupID,
				"order_in_group": i,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNoteNotFound
			}
		}
		return touchBoard(tx, group.BoardID)
	})
}

// GroupMembers 그룹 멤버를 표시 순서로 조회
func (s *BoardStore) GroupMembers(ctx context.Context, groupID string) ([]model.Note, error) {
	var notes []model.Note
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND is_archived = ?", groupID, false).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return model.SortGroupMembers(notes), nil
}

// ListGroups 보드의 그룹 목록
func (s *BoardStore) ListGroups(ctx context.Context, boardID string) ([]model.Group, error) {
	var groups []model.Group
	err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&groups).Error
	return groups, err
}

// GetGroup 그룹 단건 조회
func (s *BoardStore) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// ===== 참가자 =====

// JoinBoard 보드 참가. 클라이언트 ID를 새로 발급하고 아바타 색을 랜덤 배정한다.
// 같은 브라우저의 재참가는 새 참가자로 취급한다 (익명 보드 정책).
func (s *BoardStore) JoinBoard(ctx context.Context, boardID, nickname string) (*model.Participant, error) {
	if nickname == "" {
		return nil, errors.New("nickname is required")
	}

	p := &model.Participant{
		ID:           uuid.New().String(),
		BoardID:      boardID,
		ClientID:     uuid.New().String(),
		Nickname:     nickname,
		AvatarColor:  model.AvatarColors[rand.Intn(len(model.AvatarColors))],
		LastActiveAt: time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireBoard(tx, boardID); err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return touchBoard(tx, boardID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// TouchParticipant 참가자 활동 시각 갱신
func (s *BoardStore) TouchParticipant(ctx context.Context, boardID, clientID string) error {
	res := s.db.WithContext(ctx).Model(&model.Participant{}).
		Where("board_id = ? AND client_id = ?", boardID, clientID).
		Update("last_active_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// GetParticipant 클라이언트 ID로 참가자 조회
func (s *BoardStore) GetParticipant(ctx context.Context, boardID, clientID string) (*model.Participant, error) {
	var p model.Participant
	err := s.db.WithContext(ctx).
		First(&p, "board_id = ? AND client_id = ?", boardID, clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants 보드 참가자 목록 (참가 순)
func (s *BoardStore) ListParticipants(ctx context.Context, boardID string) ([]model.Participant, error) {
	var participants []model.Participant
	err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// ===== 공통 =====

// touchBoard 하위 컬렉션 변경 시 보드 updated_at 갱신
func touchBoard(tx *gorm.DB, boardID string) error {
	return tx.Model(&model.Board{}).Where("id = ?", boardID).
		Update("updated_at", time.Now()).Error
}

func requireBoard(tx *gorm.DB, boardID string) error {
	var count int64
	if err := tx.Model(&model.Board{}).Where("id = ?", boardID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBoardNotFound
	}
	return nil
}
