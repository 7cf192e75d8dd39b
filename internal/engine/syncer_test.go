package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/streamctl/internal/events"
)

type recordingEngine struct {
	mu    sync.Mutex
	calls []string
	seen  chan struct{}
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{seen: make(chan struct{}, 16)}
}

func (r *recordingEngine) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recordingEngine) PutStream(_ context.Context, name, conn string) error {
	r.record("put " + name + " " + conn)
	return nil
}

func (r *recordingEngine) DeleteStream(_ context.Context, name string) error {
	r.record("delete " + name)
	return nil
}

func (r *recordingEngine) SyncAll(context.Context) error {
	r.record("sync")
	return nil
}

func (r *recordingEngine) wait(t *testing.T, n int) []string {
	t.Helper()
	for range n {
		select {
		case <-r.seen:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d engine calls", n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSyncerForwardsEvents(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  []string
	}{
		{
			name:  "created",
			event: events.StreamCreatedEvent{Name: "cam1", URL: "rtsp://a"},
			want:  []string{"put cam1 rtsp://a"},
		},
		{
			name:  "updated in place",
			event: events.StreamUpdatedEvent{Name: "cam1", PreviousName: "cam1", URL: "rtsp://b"},
			want:  []string{"put cam1 rtsp://b"},
		},
		{
			name:  "renamed",
			event: events.StreamUpdatedEvent{Name: "cam2", PreviousName: "cam1", URL: "rtsp://b"},
			want:  []string{"delete cam1", "put cam2 rtsp://b"},
		},
		{
			name:  "deleted",
			event: events.StreamDeletedEvent{Name: "cam1"},
			want:  []string{"delete cam1"},
		},
		{
			name:  "imported",
			event: events.StreamsImportedEvent{BatchID: "b1", Success: 2},
			want:  []string{"sync"},
		},
		{
			name:  "registry edited",
			event: events.RegistryChangedEvent{Source: "streams.toml"},
			want:  []string{"sync"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.New()
			eng := newRecordingEngine()
			s := NewSyncer(eng, bus)
			s.Start()
			defer s.Stop()

			bus.Publish(tt.event)

			got := eng.wait(t, len(tt.want))
			if len(got) != len(tt.want) {
				t.Fatalf("calls = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("call[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSyncerIgnoresEmptyImport(t *testing.T) {
	bus := events.New()
	eng := newRecordingEngine()
	s := NewSyncer(eng, bus)
	s.Start()
	defer s.Stop()

	bus.Publish(events.StreamsImportedEvent{BatchID: "b1", Failed: 3})

	select {
	case <-eng.seen:
		t.Error("an import that stored nothing should not resync")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSyncerStop(t *testing.T) {
	bus := events.New()
	eng := newRecordingEngine()
	s := NewSyncer(eng, bus)
	s.Start()
	s.Stop()

	bus.Publish(events.StreamDeletedEvent{Name: "cam1"})

	select {
	case <-eng.seen:
		t.Error("stopped syncer forwarded an event")
	case <-time.After(20 * time.Millisecond):
	}
}
