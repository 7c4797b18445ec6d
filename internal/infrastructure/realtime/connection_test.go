package realtime

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestSendAfterCloseIsRejected(t *testing.T) {
	conn := NewConnection("alice", &fakeSocket{})
	conn.Start()
	conn.Close(websocket.CloseNormalClosure, "bye")

	// Every send must fail: the buffer may still have room after the write
	// loop exits, and a successful enqueue there would be a phantom delivery.
	for i := 0; i < 100; i++ {
		assert.ErrorIs(t, conn.Send([]byte("payload")), ErrConnectionClosed)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := NewConnection("alice", &fakeSocket{})
	conn.Start()

	assert.NotPanics(t, func() {
		conn.Close(websocket.CloseNormalClosure, "bye")
		conn.Close(websocket.CloseGoingAway, "again")
	})
}
