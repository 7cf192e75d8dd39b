package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/streamctl/internal/events"
	"github.com/smazurov/streamctl/internal/logging"
)

// Engine is the part of Client the syncer drives.
type Engine interface {
	PutStream(ctx context.Context, name, connectionString string) error
	DeleteStream(ctx context.Context, name string) error
	SyncAll(ctx context.Context) error
}

// Syncer forwards registry events to the engine.
type Syncer struct {
	engine  Engine
	bus     *events.Bus
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewSyncer creates a syncer. Call Start to subscribe.
func NewSyncer(engine Engine, bus *events.Bus) *Syncer {
	return &Syncer{
		engine:  engine,
		bus:     bus,
		timeout: requestTimeout,
		logger:  logging.GetLogger("engine"),
	}
}

// Start subscribes to stream events.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(func(e events.StreamCreatedEvent) {
			s.put(e.Name, e.URL)
		}),
		s.bus.Subscribe(func(e events.StreamUpdatedEvent) {
			if e.PreviousName != "" && e.PreviousName != e.Name {
				s.delete(e.PreviousName)
			}
			s.put(e.Name, e.URL)
		}),
		s.bus.Subscribe(func(e events.StreamDeletedEvent) {
			s.delete(e.Name)
		}),
		s.bus.Subscribe(func(e events.StreamsImportedEvent) {
			if e.Success > 0 {
				s.syncAll("import " + e.BatchID)
			}
		}),
		s.bus.Subscribe(func(e events.RegistryChangedEvent) {
			s.syncAll(e.Source)
		}),
	)
}

// Stop unsubscribes from all events.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *Syncer) put(name, conn string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.engine.PutStream(ctx, name, conn); err != nil {
		s.logger.Warn("Failed to push stream to engine", "name", name, "error", err)
	}
}

func (s *Syncer) delete(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.engine.DeleteStream(ctx, name); err != nil {
		s.logger.Warn("Failed to remove stream from engine", "name", name, "error", err)
	}
}

func (s *Syncer) syncAll(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*s.timeout)
	defer cancel()
	s.logger.Info("Resyncing engine", "reason", reason)
	if err := s.engine.SyncAll(ctx); err != nil {
		s.logger.Warn("Failed to resync engine", "error", err)
	}
}
