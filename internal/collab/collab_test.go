package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReadyAgainstLiveRelay(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, WaitReady(ctx, wsURL))
}

func TestWaitReadyTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	err := WaitReady(ctx, "ws://127.0.0.1:1/sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, "actorA", string(RoleA))
	assert.Equal(t, "actorB", string(RoleB))
	assert.Equal(t, "both", string(RoleBoth))
}
