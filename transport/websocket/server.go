package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/presenter"
	"github.com/rocketscienceinc/tripptrapp/internal/repository"
)

const writeTimeout = 10 * time.Second

var errNotConnected = errors.New("send connect first")

type uGame interface {
	Connect(ctx context.Context, sessionID string) (*repository.Session, error)
	MakeTurn(ctx context.Context, sessionID string, cell int) (entity.Snapshot, error)
	ResetGame(ctx context.Context, sessionID string) (entity.Snapshot, error)
	ChangeMode(ctx context.Context, sessionID string, mode entity.GameMode) (entity.Snapshot, error)
	GetSnapshot(ctx context.Context, sessionID string) (entity.Snapshot, error)
}

type handlerFunc func(ctx context.Context, conn *client, message *Message) error

type Server struct {
	logger   *slog.Logger
	uGame    uGame
	language presenter.Language
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uGame uGame, language presenter.Language) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		uGame:    uGame,
		language: language,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameReset] = server.handleGameReset
	server.handlers[actionGameMode] = server.handleGameMode

	return server
}

// client is one WebSocket connection. Writes come from the read loop and from
// game listeners, so they are serialized by writeMu.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu          sync.Mutex
	sessionID   string
	unsubscribe func()
}

func (that *client) send(action string, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return that.conn.WriteJSON(Message{Action: action, Payload: raw})
}

func (that *client) session() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.sessionID
}

// attach binds the connection to a session and replaces the previous listener.
func (that *client) attach(sessionID string, unsubscribe func()) {
	that.mu.Lock()
	previous := that.unsubscribe
	that.sessionID = sessionID
	that.unsubscribe = unsubscribe
	that.mu.Unlock()

	if previous != nil {
		previous()
	}
}

func (that *client) detach() {
	that.attach("", nil)
}

// ServeHTTP upgrades the request and processes messages until the client goes away.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket connection established", "remote_addr", req.RemoteAddr)

	c := &client{conn: conn}
	defer c.detach()

	that.handleMessages(req.Context(), c)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleMessages")

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			log.Info("WebSocket connection closed", "session_id", c.session())
			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			if err := that.sendError(c, message.Action, "unknown action"); err != nil {
				log.Error("failed to send error", "error", err)
				return
			}
			continue
		}

		if err := handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) gameState(snapshot entity.Snapshot) *GameState {
	return &GameState{
		Snapshot:   snapshot,
		StatusText: presenter.StatusText(that.language, snapshot),
	}
}

func (that *Server) sendError(c *client, action, errorMsg string) error {
	return c.send(actionError, Payload{Error: action + ": " + errorMsg})
}
