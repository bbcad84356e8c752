// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	internal_session "github.com/rapidaai/voice-gateway/internal/session"
	internal_transformer "github.com/rapidaai/voice-gateway/internal/transformer"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

// Options wires the gateway's shared collaborators. Provider adapters
// and the VAD detector are shared across all sessions.
type Options struct {
	Logger   commons.Logger
	Session  internal_session.Config
	STT      internal_transformer.SpeechToText
	Dialogue internal_transformer.Dialogue
	TTS      internal_transformer.TextToSpeech
	VAD      *internal_vad.Detector
}

// Gateway accepts media websocket upgrades and owns the live session
// registry.
type Gateway struct {
	logger   commons.Logger
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*internal_session.Session
	draining bool
}

// NewGateway builds the media gateway.
func NewGateway(opts Options) *Gateway {
	return &Gateway{
		logger: opts.Logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			// trust boundary is the telephony provider's network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*internal_session.Session),
	}
}

// HandleMediaStream upgrades /media-stream and runs the session's read
// loop until the peer disconnects. Upgrade failures answer 4xx without
// creating a session.
func (g *Gateway) HandleMediaStream(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	draining := g.draining
	g.mu.RUnlock()
	if draining {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warnw("gateway: websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	sess := internal_session.NewSession(id, internal_session.Options{
		Logger:   g.logger,
		Conn:     conn,
		Config:   g.opts.Session,
		STT:      g.opts.STT,
		Dialogue: g.opts.Dialogue,
		TTS:      g.opts.TTS,
		VAD:      g.opts.VAD,
	})

	g.mu.Lock()
	g.sessions[id] = sess
	total := len(g.sessions)
	g.mu.Unlock()
	g.logger.Infow("gateway: media stream connected", "connection", id, "remote", r.RemoteAddr, "active", total)

	sess.Start()
	g.readLoop(sess, conn)

	sess.Teardown()
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
	g.logger.Infow("gateway: media stream disconnected", "connection", id)
}

func (g *Gateway) readLoop(sess *internal_session.Session, conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warnw("gateway: read failed", "connection", sess.ID(), "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		sess.HandleMessage(data)
		if sess.Ended() {
			return
		}
	}
}

// ActiveSessions snapshots every live session.
func (g *Gateway) ActiveSessions() []internal_session.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]internal_session.Snapshot, 0, len(g.sessions))
	for _, sess := range g.sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// SessionByConnectionID returns a live session by its connection id.
func (g *Gateway) SessionByConnectionID(id string) (*internal_session.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sess, ok := g.sessions[id]
	return sess, ok
}

// SessionByCallID returns the live session handling a provider call id.
func (g *Gateway) SessionByCallID(callID string) (*internal_session.Session, bool) {
	if callID == "" {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, sess := range g.sessions {
		if sess.CallID() == callID {
			return sess, true
		}
	}
	return nil, false
}

// Count returns the number of live sessions.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Drain stops accepting new streams and says goodbye to every live
// session, bounded by ctx.
func (g *Gateway) Drain(ctx context.Context) {
	g.mu.Lock()
	g.draining = true
	live := make([]*internal_session.Session, 0, len(g.sessions))
	for _, sess := range g.sessions {
		live = append(live, sess)
	}
	g.mu.Unlock()
	if len(live) == 0 {
		return
	}

	g.logger.Infow("gateway: draining live sessions", "count", len(live))
	grp, grpCtx := errgroup.WithContext(ctx)
	for _, sess := range live {
		grp.Go(func() error {
			sess.Farewell(grpCtx)
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = grp.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warnw("gateway: drain deadline hit, force closing")
		for _, sess := range live {
			sess.Teardown()
		}
	case <-time.After(30 * time.Second):
		for _, sess := range live {
			sess.Teardown()
		}
	}
}
