package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData Redis에 저장될 온라인 참가자 데이터
type PresenceData struct {
	ClientID      string `json:"client_id"`
	Nickname      string `json:"nickname"`
	AvatarColor   string `json:"avatar_color"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}

// Manager 보드별 참가자 온라인 표시 관리자. 하트비트가 끊기면 TTL로
// 자동 소멸한다. Redis가 없으면 nil Manager로 동작하고 모든 호출이
// 무해하게 no-op이 된다 (DB의 lastActiveAt만 남는다).
type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewManager 생성자
func NewManager(addr, password string, db int, ttl time.Duration) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Manager{client: rdb, ttl: ttl}
}

// Ping 연결 확인
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.client.Ping(ctx).Err()
}

func (m *Manager) clientKey(boardID, clientID string) string {
	return fmt.Sprintf("presence:board:%s:client:%s", boardID, clientID)
}

func (m *Manager) boardPattern(boardID string) string {
	return fmt.Sprintf("presence:board:%s:client:*", boardID)
}

// MarkOnline 접속 표시 (WS 연결 시)
func (m *Manager) MarkOnline(ctx context.Context, boardID, clientID, nickname, avatarColor string) error {
	if m == nil {
		return nil
	}

	data := PresenceData{
		ClientID:      clientID,
		Nickname:      nickname,
		AvatarColor:   avatarColor,
		LastHeartbeat: time.Now().Unix(),
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return m.client.Set(ctx, m.clientKey(boardID, clientID), jsonData, m.ttl).Err()
}

// Heartbeat 생존 신고 (TTL 연장). 키가 이미 소멸했으면 에러를 돌려
// 호출자가 MarkOnline으로 재등록하게 한다.
func (m *Manager) Heartbeat(ctx context.Context, boardID, clientID string) error {
	if m == nil {
		return nil
	}

	ok, err := m.client.Expire(ctx, m.clientKey(boardID, clientID), m.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("client %s not marked online on board %s", clientID, boardID)
	}
	return nil
}

// MarkOffline 접속 해제 표시 (WS 종료 시)
func (m *Manager) MarkOffline(ctx context.Context, boardID, clientID string) error {
	if m == nil {
		return nil
	}
	return m.client.Del(ctx, m.clientKey(boardID, clientID)).Err()
}

// OnlineClients 보드의 온라인 참가자 조회
func (m *Manager) OnlineClients(ctx context.Context, boardID string) ([]PresenceData, error) {
	if m == nil {
		return nil, nil
	}

	var out []PresenceData
	iter := m.client.Scan(ctx, 0, m.boardPattern(boardID), 100).Iterator()
	for iter.Next(ctx) {
		val, err := m.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // 순회 중 TTL 만료
		}
		if err != nil {
			return nil, err
		}

		var data PresenceData
		if err := json.Unmarshal([]byte(val), &data); err != nil {
			continue
		}
		out = append(out, data)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Close 연결 종료
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
