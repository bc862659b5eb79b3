package game

import (
	"sync"

	"github.com/google/uuid"
)

// GameStore tracks the dealers of the games hosted by this process.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Dealer
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*Dealer),
	}
}

func (s *GameStore) AddGame(d *Dealer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[d.ID] = d
}

func (s *GameStore) GetGame(id uuid.UUID) (*Dealer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, exists := s.games[id]
	return d, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// Current returns the only hosted game when there is exactly one, so spectators can
// connect without knowing its id.
func (s *GameStore) Current() (*Dealer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.games) != 1 {
		return nil, false
	}
	for _, d := range s.games {
		return d, true
	}
	return nil, false
}
