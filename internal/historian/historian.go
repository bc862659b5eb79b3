// Package historian drains the game action log from Redis into PostgreSQL.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/setdealer/internal/cache"
	"github.com/jason-s-yu/setdealer/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store persists what the historian collects.
type Store interface {
	InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// PostgresStore writes through the global database pool.
type PostgresStore struct{}

func (PostgresStore) InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	return database.InsertGameActions(ctx, records)
}

func (PostgresStore) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return database.MarkGameAbandoned(ctx, gameID)
}

// Options tune the batching and the inactivity sweep.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // a game silent this long is marked abandoned
	PopTimeout time.Duration
	MaxPending int // records kept for retry while the store is failing; oldest go first
}

func DefaultOptions() Options {
	return Options{
		Queue:      cache.DefaultQueueName,
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		Inactivity: 10 * time.Minute,
		PopTimeout: 3 * time.Second,
		MaxPending: 1000,
	}
}

// Service captures game actions in batches and marks games abandoned once they go quiet.
type Service struct {
	redis redis.Cmdable
	store Store
	opts  Options
	log   *logrus.Entry

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu  sync.Mutex
	batch    []cache.GameActionRecord
	retrying bool // last flush failed; only the ticker flushes until one succeeds
}

// NewService builds a historian reading from client and writing to store.
func NewService(client redis.Cmdable, store Store, opts Options, logger *logrus.Entry) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxPending < opts.BatchSize {
		opts.MaxPending = opts.BatchSize
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		redis: client,
		store: store,
		opts:  opts,
		log:   logger,
		batch: make([]cache.GameActionRecord, 0, opts.BatchSize),
	}
}

// Run reads the queue and sweeps inactive games until ctx is done, then flushes what is
// left in the batch.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("historian service started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.inactivityLoop(gctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian shutting down")
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Flush(ctx)
		default:
			rec, ok, err := cache.PopGameAction(ctx, s.redis, s.opts.Queue, s.opts.PopTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Errorf("pop action: %v", err)
				continue
			}
			if ok {
				s.Add(ctx, rec, time.Now())
			}
		}
	}
}

// Add records activity for rec's game and batches it, flushing when the batch is full
// unless a failed batch is waiting for the next tick.
func (s *Service) Add(ctx context.Context, rec cache.GameActionRecord, now time.Time) {
	if rec.ActionType == database.ActionGameEnd {
		s.lastActivity.Delete(rec.GameID)
	} else {
		s.lastActivity.Store(rec.GameID, now)
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	s.trimLocked()
	full := len(s.batch) >= s.opts.BatchSize && !s.retrying
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the current batch in a single transaction. A failed batch is put back
// in front of the next one, up to MaxPending records.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]cache.GameActionRecord, 0, s.opts.BatchSize)
	s.batchMu.Unlock()

	if err := s.store.InsertGameActions(ctx, batch); err != nil {
		s.log.Errorf("flush %d actions: %v", len(batch), err)
		s.batchMu.Lock()
		s.batch = append(batch, s.batch...)
		s.retrying = true
		s.trimLocked()
		s.batchMu.Unlock()
		return
	}
	s.batchMu.Lock()
	s.retrying = false
	s.batchMu.Unlock()
	s.log.Debugf("Flushed %d actions to DB.", len(batch))
}

// trimLocked drops the oldest records beyond MaxPending. Assumes batchMu is held.
func (s *Service) trimLocked() {
	over := len(s.batch) - s.opts.MaxPending
	if over <= 0 {
		return
	}
	s.log.Errorf("dropping %d oldest actions, %d pending exceeds the retry limit of %d", over, len(s.batch), s.opts.MaxPending)
	s.batch = append(s.batch[:0:0], s.batch[over:]...)
}

// Pending returns the number of batched, unflushed records.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Sweep marks every game that has been inactive longer than the threshold as abandoned.
func (s *Service) Sweep(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		if err := s.store.MarkGameAbandoned(ctx, gameID); err != nil {
			s.log.Warnf("failed to mark game %v abandoned: %v", gameID, err)
			return true
		}
		s.log.Infof("Marked game %v as 'abandoned' due to inactivity.", gameID)
		s.lastActivity.Delete(gameID)
		return true
	})
}
