package events

// Event type constants for kelindar/event.
const (
	TypeStreamCreated uint32 = iota + 1
	TypeStreamUpdated
	TypeStreamDeleted
	TypeStreamsImported
	TypeRegistryChanged
	TypeEngineStatus
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamCreatedEvent is published after a registry entry is added.
type StreamCreatedEvent struct {
	Name      string `json:"name" example:"cam1" doc:"Stream name"`
	URL       string `json:"url" example:"rtsp://10.0.0.5:554/stream" doc:"Connection string"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamCreatedEvent.
func (e StreamCreatedEvent) Type() uint32 { return TypeStreamCreated }

// StreamUpdatedEvent is published after an entry is edited. PreviousName
// differs from Name when the stream was renamed.
type StreamUpdatedEvent struct {
	Name         string `json:"name" example:"cam1" doc:"Stream name"`
	PreviousName string `json:"previous_name" example:"cam1" doc:"Name before the edit"`
	URL          string `json:"url" example:"ffmpeg:rtsp://10.0.0.5:554/stream#video=h264" doc:"Connection string"`
	Timestamp    string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamUpdatedEvent.
func (e StreamUpdatedEvent) Type() uint32 { return TypeStreamUpdated }

// StreamDeletedEvent is published after an entry is removed.
type StreamDeletedEvent struct {
	Name      string `json:"name" example:"cam1" doc:"Stream name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamDeletedEvent.
func (e StreamDeletedEvent) Type() uint32 { return TypeStreamDeleted }

// StreamsImportedEvent is published once per import batch.
type StreamsImportedEvent struct {
	BatchID   string   `json:"batch_id" doc:"Import batch identifier"`
	Names     []string `json:"names" doc:"Names stored by this batch"`
	Success   int      `json:"success" doc:"Rows stored"`
	Failed    int      `json:"failed" doc:"Rows rejected"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamsImportedEvent.
func (e StreamsImportedEvent) Type() uint32 { return TypeStreamsImported }

// RegistryChangedEvent is published when the registry was modified outside
// the service, e.g. the registry file was edited by hand.
type RegistryChangedEvent struct {
	Source    string `json:"source" example:"streams.toml" doc:"What changed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RegistryChangedEvent.
func (e RegistryChangedEvent) Type() uint32 { return TypeRegistryChanged }

// EngineStatusEvent reports a change in streaming engine reachability.
type EngineStatusEvent struct {
	Online    bool   `json:"online" doc:"Whether the engine answers"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineStatusEvent.
func (e EngineStatusEvent) Type() uint32 { return TypeEngineStatus }
