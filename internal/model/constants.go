package model

// MaxNoteContentLen 노트 본문 최대 길이 (rune 기준)
const MaxNoteContentLen = 500

// DefaultGroupName 드래그로 그룹을 생성할 때의 기본 이름
const DefaultGroupName = "New Group"

// AvatarColors 참가자 아바타 색상 팔레트 (참가 시 랜덤 배정)
var AvatarColors = []string{
	"#8B5CF6", // Purple
	"#14B8A6", // Teal
	"#F472B6", // Pink
	"#F59E0B", // Amber
	"#3B82F6", // Blue
	"#EF4444", // Red
	"#10B981", // Green
	"#6366F1", // Indigo
}

// StickyColors 노트 배경 색상 팔레트
var StickyColors = []string{
	"#FEF3C7", // Yellow (default)
	"#DBEAFE", // Blue
	"#D1FAE5", // Green
	"#FCE7F3", // Pink
	"#E0E7FF", // Indigo
	"#FED7AA", // Orange
}

// GroupColors 그룹 헤더 색상 팔레트 (렌더러가 index % len으로 선택)
var GroupColors = []string{
	"#8B5CF6", "#14B8A6", "#F472B6", "#3B82F6", "#F59E0B", "#EF4444",
}

// 캔버스 상의 고정 풋프린트. fit-to-content 계산에 사용된다.
const (
	NoteWidth  = 180.0
	NoteHeight = 120.0

	GroupWidth     = 220.0 // 4개 미만: 1열
	GroupWideWidth = 300.0 // 4개 이상: 2열 그리드
	GroupMinHeight = 120.0
	GroupRowHeight = 60.0
	GroupPadHeight = 80.0
)

// GroupFootprint 멤버 수에 따른 그룹의 표시 크기 (저장되지 않고 파생된다)
func GroupFootprint(memberCount int) (w, h float64) {
	w = GroupWidth
	if memberCount >= 4 {
		w = GroupWideWidth
	}
	h = float64(memberCount)*GroupRowHeight + GroupPadHeight
	if h < GroupMinHeight {
		h = GroupMinHeight
	}
	return w, h
}
