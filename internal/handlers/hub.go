// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/game"
	"github.com/sirupsen/logrus"
)

// spectatorBuffer is how many events a spectator may lag behind before it is dropped.
const spectatorBuffer = 256

// writeTimeout bounds a single websocket write.
const writeTimeout = 3 * time.Second

// spectator is one read-only websocket client of a game.
type spectator struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	// guarded by the hub lock; events are held until the snapshot is queued
	live bool
	held [][]byte
}

func newSpectator(conn *websocket.Conn) *spectator {
	return &spectator{
		conn: conn,
		send: make(chan []byte, spectatorBuffer),
		done: make(chan struct{}),
	}
}

// enqueue never blocks; it reports false when the spectator's buffer is full.
func (s *spectator) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *spectator) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writeLoop sends queued messages in order until ctx ends or the spectator is stopped.
func (s *spectator) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case msg := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// SpectatorHub fans game events out to every spectator of the game.
type SpectatorHub struct {
	mu     sync.Mutex
	games  map[uuid.UUID]map[*spectator]struct{}
	logger *logrus.Entry
}

func NewSpectatorHub(logger *logrus.Entry) *SpectatorHub {
	return &SpectatorHub{
		games:  make(map[uuid.UUID]map[*spectator]struct{}),
		logger: logger,
	}
}

// add registers s for gameID and returns the game's spectator count. Events for s are
// held until release queues its snapshot.
func (h *SpectatorHub) add(gameID uuid.UUID, s *spectator) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.games[gameID]
	if !ok {
		set = make(map[*spectator]struct{})
		h.games[gameID] = set
	}
	set[s] = struct{}{}
	return len(set)
}

// release queues snapshot as the first message of s, followed by the events held since add.
// Held events may repeat what the snapshot shows; every event sets absolute state.
func (h *SpectatorHub) release(s *spectator, snapshot []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.enqueue(snapshot)
	for _, msg := range s.held {
		s.enqueue(msg)
	}
	s.held = nil
	s.live = true
}

func (h *SpectatorHub) remove(gameID uuid.UUID, s *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.games[gameID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.games, gameID)
		}
	}
	s.stop()
}

// Count returns the number of spectators watching gameID.
func (h *SpectatorHub) Count(gameID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[gameID])
}

// Broadcast queues ev for every spectator of its game. It is called while the table lock
// is held, so it only marshals and enqueues; spectators that cannot keep up are closed.
func (h *SpectatorHub) Broadcast(ev game.GameEvent) {
	msg := game.MarshalEvent(ev)

	h.mu.Lock()
	var slow []*spectator
	for s := range h.games[ev.GameID] {
		switch {
		case !s.live && len(s.held) < spectatorBuffer-1:
			s.held = append(s.held, msg)
		case !s.live || !s.enqueue(msg):
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		h.logger.Warnf("Dropping slow spectator of game %s.", ev.GameID)
		h.remove(ev.GameID, s)
		go s.conn.Close(SlowSpectatorError, "spectator fell behind")
	}
}

// CloseGame disconnects every spectator of gameID with code.
func (h *SpectatorHub) CloseGame(gameID uuid.UUID, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	set := h.games[gameID]
	delete(h.games, gameID)
	h.mu.Unlock()

	for s := range set {
		go func(s *spectator) {
			s.conn.Close(code, reason)
			s.stop()
		}(s)
	}
}
