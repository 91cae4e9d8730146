package handler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 브로드캐스트와 초기 푸시가 같은 연결에 동시에 쓰면 fasthttp/websocket이
// 패닉하므로, 클라이언트 쓰기 경로가 한 번에 하나씩만 들어가는지 검증한다.
func TestBoardClientSerializesWrites(t *testing.T) {
	var inFlight int32
	var overlapped int32
	var total int32

	client := &boardClient{ClientID: "client-1"}
	client.write = func(data []byte) error {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			atomic.AddInt32(&overlapped, 1)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&total, 1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, client.send([]byte(`{"type":"notes"}`)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlapped), "쓰기가 겹치면 안 된다")
	assert.Equal(t, int32(20), atomic.LoadInt32(&total))
}

func TestSendMessageMarshalsEnvelope(t *testing.T) {
	hub := &BoardHub{}

	var got []byte
	client := &boardClient{ClientID: "client-1"}
	client.write = func(data []byte) error {
		got = data
		return nil
	}

	require.NoError(t, hub.sendMessage(client, WSMessage{Type: FeedNotes, Payload: []string{}}))
	assert.JSONEq(t, `{"type":"notes","payload":[]}`, string(got))
}
