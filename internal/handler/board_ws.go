package handler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"stickyboard-backend/internal/config"
	"stickyboard-backend/internal/presence"
	"stickyboard-backend/internal/store"
)

// 브로드캐스트 컬렉션 종류
const (
	FeedBoard        = "board"
	FeedNotes        = "notes"
	FeedGroups       = "groups"
	FeedParticipants = "participants"
)

// WSMessage WebSocket 메시지
type WSMessage struct {
	Type    string      `json:"type"` // board, notes, groups, participants, error
	Payload interface{} `json:"payload,omitempty"`
}

// BoardHub 보드별 WebSocket 룸 허브. 연결 시 현재 컬렉션 전체를 밀어주고,
// 이후 변경이 있을 때마다 바뀐 컬렉션을 통째로 다시 읽어 팬아웃한다.
// 클라이언트는 증분 패치가 아니라 항상 완전한 컬렉션을 받는다.
type BoardHub struct {
	store    *store.BoardStore
	presence *presence.Manager
	cfg      config.WebSocketConfig
	rooms    map[string]*boardRoom // boardID -> room
	mu       sync.RWMutex
}

// boardRoom 보드 하나의 연결 집합 + 스냅샷
type boardRoom struct {
	boardID  string
	clients  map[*websocket.Conn]*boardClient
	snapshot *store.BoardSnapshot
	mu       sync.RWMutex
}

// boardClient 접속 중인 참가자. fasthttp/websocket은 동시 쓰기를 허용하지
// 않으므로 데이터 프레임은 전부 send를 거쳐 mu로 직렬화한다.
type boardClient struct {
	ClientID string
	Nickname string
	Conn     *websocket.Conn

	mu    sync.Mutex
	write func(data []byte) error
}

// send 데이터 프레임 전송. 쓰기 경로 직렬화 지점.
func (bc *boardClient) send(data []byte) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.write(data)
}

// NewBoardHub BoardHub 생성
func NewBoardHub(st *store.BoardStore, pm *presence.Manager, cfg config.WebSocketConfig) *BoardHub {
	return &BoardHub{
		store:    st,
		presence: pm,
		cfg:      cfg,
		rooms:    make(map[string]*boardRoom),
	}
}

// getOrCreateRoom 룸 조회 또는 생성
func (h *BoardHub) getOrCreateRoom(boardID string) *boardRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[boardID]; ok {
		return room
	}

	room := &boardRoom{
		boardID:  boardID,
		clients:  make(map[*websocket.Conn]*boardClient),
		snapshot: store.NewBoardSnapshot(),
	}
	h.rooms[boardID] = room
	return room
}

// Snapshot returns the live snapshot for a board, loading collections from
// the database when no room has been opened yet. The grouping engine reads
// drag subjects and targets from this view.
func (h *BoardHub) Snapshot(ctx context.Context, boardID string) (*store.BoardSnapshot, error) {
	room := h.getOrCreateRoom(boardID)

	room.mu.Lock()
	defer room.mu.Unlock()
	if err := h.refreshSnapshot(ctx, room, FeedNotes); err != nil {
		return nil, err
	}
	if err := h.refreshSnapshot(ctx, room, FeedGroups); err != nil {
		return nil, err
	}
	return room.snapshot, nil
}

// HandleWebSocket WebSocket 연결 처리
func (h *BoardHub) HandleWebSocket(c *websocket.Conn) {
	boardID, ok1 := c.Locals("boardID").(string)
	clientID, ok2 := c.Locals("clientID").(string)
	nickname, _ := c.Locals("nickname").(string)

	if !ok1 || !ok2 || boardID == "" || clientID == "" {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":"invalid session"}`))
		c.Close()
		return
	}

	ctx := context.Background()
	room := h.getOrCreateRoom(boardID)

	client := &boardClient{
		ClientID: clientID,
		Nickname: nickname,
		Conn:     c,
	}
	client.write = func(data []byte) error {
		if h.cfg.WriteTimeout > 0 {
			c.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		}
		return c.WriteMessage(websocket.TextMessage, data)
	}

	// 클라이언트 등록
	room.mu.Lock()
	room.clients[c] = client
	room.mu.Unlock()

	log.Printf("[BoardWS] 연결: board=%s client=%s", boardID, clientID)

	// 온라인 표시 (Redis 없으면 no-op)
	if err := h.presence.MarkOnline(ctx, boardID, clientID, nickname, ""); err != nil {
		log.Printf("[BoardWS] presence mark online failed: %v", err)
	}

	// 연결 해제 시 정리
	defer func() {
		room.mu.Lock()
		delete(room.clients, c)
		room.mu.Unlock()
		c.Close()

		if err := h.presence.MarkOffline(ctx, boardID, clientID); err != nil {
			log.Printf("[BoardWS] presence mark offline failed: %v", err)
		}
		log.Printf("[BoardWS] 연결 해제: board=%s client=%s", boardID, clientID)
	}()

	// 접속 직후 전체 상태 푸시
	if err := h.pushFullState(ctx, room, client); err != nil {
		log.Printf("[BoardWS] initial push failed: %v", err)
		return
	}

	// keepalive ping 루프
	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(c, done)

	// 메시지 수신 루프. 클라이언트가 보내는 건 하트비트뿐이다.
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "heartbeat":
			if err := h.presence.Heartbeat(ctx, boardID, clientID); err != nil {
				// TTL이 만료됐으면 재등록
				h.presence.MarkOnline(ctx, boardID, clientID, nickname, "")
			}
			h.store.TouchParticipant(ctx, boardID, clientID)
		}
	}
}

// pingLoop 주기적으로 ping 프레임 전송. 실패하면 수신 루프가 곧 끊긴다.
func (h *BoardHub) pingLoop(c *websocket.Conn, done <-chan struct{}) {
	interval := h.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// pushFullState 접속 직후 보드/노트/그룹/참가자 전체 전송
func (h *BoardHub) pushFullState(ctx context.Context, room *boardRoom, client *boardClient) error {
	board, err := h.store.GetBoard(ctx, room.boardID)
	if err != nil {
		return err
	}
	notes, err := h.store.ListNotes(ctx, room.boardID)
	if err != nil {
		return err
	}
	groups, err := h.store.ListGroups(ctx, room.boardID)
	if err != nil {
		return err
	}
	participants, err := h.store.ListParticipants(ctx, room.boardID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	room.snapshot.ApplyNotes(notes)
	room.snapshot.ApplyGroups(groups)
	room.mu.Unlock()

	for _, msg := range []WSMessage{
		{Type: FeedBoard, Payload: board},
		{Type: FeedNotes, Payload: notes},
		{Type: FeedGroups, Payload: groups},
		{Type: FeedParticipants, Payload: participants},
	} {
		if err := h.sendMessage(client, msg); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast re-reads each named collection and fans the full contents out to
// every connection in the room. Call after any mutation; unknown boards and
// empty rooms are fine.
func (h *BoardHub) Broadcast(boardID string, feeds ...string) {
	ctx := context.Background()
	room := h.getOrCreateRoom(boardID)

	for _, feed := range feeds {
		payload, err := h.loadFeed(ctx, room, feed)
		if err != nil {
			log.Printf("[BoardWS] broadcast read failed: board=%s feed=%s err=%v", boardID, feed, err)
			continue
		}

		msg := WSMessage{Type: feed, Payload: payload}
		room.mu.RLock()
		for _, client := range room.clients {
			if err := h.sendMessage(client, msg); err != nil {
				log.Printf("[BoardWS] 메시지 전송 실패: %v", err)
			}
		}
		room.mu.RUnlock()
	}
}

// loadFeed 컬렉션 재조회 + 스냅샷 갱신
func (h *BoardHub) loadFeed(ctx context.Context, room *boardRoom, feed string) (interface{}, error) {
	switch feed {
	case FeedBoard:
		return h.store.GetBoard(ctx, room.boardID)
	case FeedNotes:
		notes, err := h.store.ListNotes(ctx, room.boardID)
		if err != nil {
			return nil, err
		}
		room.mu.Lock()
		room.snapshot.ApplyNotes(notes)
		room.mu.Unlock()
		return notes, nil
	case FeedGroups:
		groups, err := h.store.ListGroups(ctx, room.boardID)
		if err != nil {
			return nil, err
		}
		room.mu.Lock()
		room.snapshot.ApplyGroups(groups)
		room.mu.Unlock()
		return groups, nil
	case FeedParticipants:
		return h.store.ListParticipants(ctx, room.boardID)
	}
	return nil, nil
}

// refreshSnapshot room.mu를 잡은 상태에서만 호출
func (h *BoardHub) refreshSnapshot(ctx context.Context, room *boardRoom, feed string) error {
	switch feed {
	case FeedNotes:
		notes, err := h.store.ListNotes(ctx, room.boardID)
		if err != nil {
			return err
		}
		room.snapshot.ApplyNotes(notes)
	case FeedGroups:
		groups, err := h.store.ListGroups(ctx, room.boardID)
		if err != nil {
			return err
		}
		room.snapshot.ApplyGroups(groups)
	}
	return nil
}

func (h *BoardHub) sendMessage(client *boardClient, msg WSMessage) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.send(msgBytes)
}
