package model

import "sort"

// SortGroupMembers 그룹 표시 순서로 정렬한 복사본을 반환한다.
// OrderInGroup 오름차순, 미설정은 맨 뒤로. 동순위는 CreatedAt, 그 다음 ID.
// 모든 렌더러와 재정렬 연산이 동일한 순서를 재계산해야 한다.
func SortGroupMembers(notes []Note) []Note {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)

	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := sorted[i].OrderInGroup, sorted[j].OrderInGroup
		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return sorted
}

// ToggleLike 클라이언트 ID 기준 멱등 토글. 두 번 호출하면 원래 집합으로 돌아온다.
func ToggleLike(likes StringList, clientID string) StringList {
	if likes.Contains(clientID) {
		next := make(StringList, 0, len(likes)-1)
		for _, id := range likes {
			if id != clientID {
				next = append(next, id)
			}
		}
		return next
	}
	next := make(StringList, 0, len(likes)+1)
	next = append(next, likes...)
	return append(next, clientID)
}
