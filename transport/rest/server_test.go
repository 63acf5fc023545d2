package rest

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tripptrapp/internal/metrics"
	"github.com/rocketscienceinc/tripptrapp/testing/suite"
)

func TestRouter(t *testing.T) {
	wsCalled := false
	router := NewRouter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		wsCalled = true
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("Ping", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
	})

	t.Run("Metrics", func(t *testing.T) {
		// Given: a counter that has been touched
		metrics.ComputerMoves.Add(0)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "tripptrapp_computer_moves_total")
	})

	t.Run("WebSocket endpoint", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

		assert.True(t, wsCalled)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("Unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/game", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStart(t *testing.T) {
	ctx, st := suite.New(t)

	// Given: a free local port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, st.Logger, addr, NewRouter(http.NotFoundHandler()))
	}()

	// When: the server is up
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, 5*time.Second, 20*time.Millisecond)

	// Then: cancelling the context shuts it down cleanly
	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
