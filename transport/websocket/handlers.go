package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
)

func (that *Server) handleConnect(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	var payloadReq Payload
	if err := decodePayload(msg, &payloadReq); err != nil {
		return that.sendError(c, msg.Action, err.Error())
	}

	session, err := that.uGame.Connect(ctx, payloadReq.SessionID)
	if err != nil {
		log.Error("failed to connect to session", "error", err)
		return that.sendError(c, msg.Action, "failed to start a game")
	}

	sessionID := session.ID
	unsubscribe := session.Game.Subscribe(func(snapshot entity.Snapshot) {
		payload := Payload{SessionID: sessionID, Game: that.gameState(snapshot)}
		if err := c.send(actionGameState, payload); err != nil {
			log.Warn("failed to push game state", "session_id", sessionID, "error", err)
		}
	})
	c.attach(sessionID, unsubscribe)

	payloadResp := Payload{
		SessionID: sessionID,
		Game:      that.gameState(session.Game.Snapshot()),
	}

	if err = c.send(msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("successfully connected", "session_id", sessionID, "resumed", sessionID == payloadReq.SessionID)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, c *client, msg *Message) error {
	var payloadReq Payload
	if err := decodePayload(msg, &payloadReq); err != nil {
		return that.sendError(c, msg.Action, err.Error())
	}

	if payloadReq.Cell == nil {
		return that.sendError(c, msg.Action, "cell is required")
	}

	sessionID := c.session()
	if sessionID == "" {
		return that.sendError(c, msg.Action, errNotConnected.Error())
	}

	snapshot, err := that.uGame.MakeTurn(ctx, sessionID, *payloadReq.Cell)

	return that.replyRejected(c, msg.Action, snapshot, err)
}

func (that *Server) handleGameReset(ctx context.Context, c *client, msg *Message) error {
	sessionID := c.session()
	if sessionID == "" {
		return that.sendError(c, msg.Action, errNotConnected.Error())
	}

	snapshot, err := that.uGame.ResetGame(ctx, sessionID)

	return that.replyRejected(c, msg.Action, snapshot, err)
}

func (that *Server) handleGameMode(ctx context.Context, c *client, msg *Message) error {
	var payloadReq Payload
	if err := decodePayload(msg, &payloadReq); err != nil {
		return that.sendError(c, msg.Action, err.Error())
	}

	mode, err := entity.ParseGameMode(payloadReq.Mode)
	if err != nil {
		return that.sendError(c, msg.Action, err.Error())
	}

	sessionID := c.session()
	if sessionID == "" {
		return that.sendError(c, msg.Action, errNotConnected.Error())
	}

	snapshot, err := that.uGame.ChangeMode(ctx, sessionID, mode)

	return that.replyRejected(c, msg.Action, snapshot, err)
}

// replyRejected answers an intent that left the game unchanged. Accepted intents
// are answered by the game:state push from the session listener.
func (that *Server) replyRejected(c *client, action string, snapshot entity.Snapshot, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, apperror.ErrSessionNotFound) {
		c.detach()
		return that.sendError(c, action, "session expired, connect again")
	}

	that.logger.Debug("intent rejected", "action", action, "session_id", c.session(), "reason", err)

	return c.send(action, Payload{
		SessionID: c.session(),
		Game:      that.gameState(snapshot),
		Error:     err.Error(),
	})
}

func decodePayload(msg *Message, payload *Payload) error {
	if len(msg.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}
