package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringList jsonb 배열 컬럼 (좋아요 클라이언트 ID 목록)
type StringList []string

// Value driver.Valuer 구현
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan sql.Scanner 구현
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// GormDataType GORM 컬럼 타입
func (StringList) GormDataType() string {
	return "jsonb"
}

// Contains 멤버십 확인
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Board 브레인스토밍 보드
type Board struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	TeamName       *string    `gorm:"type:varchar(100)" json:"team_name,omitempty"`
	Description    *string    `gorm:"type:text" json:"description,omitempty"`
	IsAnonymous    bool       `gorm:"default:false" json:"is_anonymous"`
	TimerMinutes   *int       `json:"timer_minutes,omitempty"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	CreatedBy      string     `gorm:"type:varchar(36);not null;index" json:"created_by"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Notes        []Note        `gorm:"foreignKey:BoardID" json:"notes,omitempty"`
	Groups       []Group       `gorm:"foreignKey:BoardID" json:"groups,omitempty"`
	Participants []Participant `gorm:"foreignKey:BoardID" json:"participants,omitempty"`
}

func (Board) TableName() string {
	return "boards"
}

// Note 스티키 노트
// 그룹에 속하지 않은 동안에만 X/Y가 유효하다. 그룹에 속하면
// 위치는 그룹 앵커 + OrderInGroup 레이아웃에서 파생된다.
type Note struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	BoardID      string     `gorm:"type:varchar(36);not null;index" json:"board_id"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	AuthorID     string     `gorm:"type:varchar(36);not null" json:"author_id"`
	AuthorName   string     `gorm:"type:varchar(100)" json:"author_name"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	GroupID      *string    `gorm:"type:varchar(36);index" json:"group_id,omitempty"`
	OrderInGroup *int       `json:"order_in_group,omitempty"`
	Color        *string    `gorm:"type:varchar(20)" json:"color,omitempty"`
	Likes        StringList `gorm:"type:jsonb" json:"likes"`
	IsArchived   bool       `gorm:"default:false;index" json:"is_archived"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Board Board  `gorm:"foreignKey:BoardID" json:"-"`
	Group *Group `gorm:"foreignKey:GroupID" json:"-"`
}

func (Note) TableName() string {
	return "notes"
}

// IsGrouped 그룹 소속 여부
func (n *Note) IsGrouped() bool {
	return n.GroupID != nil && *n.GroupID != ""
}

// Group 노트 클러스터 (멤버 노트의 레이아웃 앵커)
type Group struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BoardID   string    `gorm:"type:varchar(36);not null;index" json:"board_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Board Board  `gorm:"foreignKey:BoardID" json:"-"`
	Notes []Note `gorm:"foreignKey:GroupID" json:"-"`
}

func (Group) TableName() string {
	return "groups"
}

// Participant 보드 참가자 (익명 클라이언트 1회 참가당 1레코드)
type Participant struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BoardID      string    `gorm:"type:varchar(36);not null;index" json:"board_id"`
	ClientID     string    `gorm:"type:varchar(36);not null;index" json:"client_id"`
	Nickname     string    `gorm:"type:varchar(100);not null" json:"nickname"`
	AvatarColor  string    `gorm:"type:varchar(20);not null" json:"avatar_color"`
	JoinedAt     time.Time `gorm:"autoCreateTime" json:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"-"`
}

func (Participant) TableName() string {
	return "participants"
}
