package streams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/streamctl/internal/events"
	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/metrics"
)

// Default collaborator timeouts.
const (
	DefaultProbeTimeout     = 15 * time.Second
	DefaultDiscoveryTimeout = 200 * time.Millisecond
)

// StreamService defines the interface for stream operations.
type StreamService interface {
	CreateStream(ctx context.Context, params StreamParams) (*Stream, error)
	UpdateStream(ctx context.Context, name string, params StreamParams) (*Stream, error)
	DeleteStream(ctx context.Context, name string) error
	GetStream(ctx context.Context, name string) (*Stream, error)
	ListStreams(ctx context.Context) ([]Stream, error)
	ImportStreams(ctx context.Context, rows []ImportRow) ImportResult
	EncodeConfig(cfg StreamConfig) (string, error)
	DecodeConnection(conn string) (StreamConfig, Profile)
	ProbeSource(ctx context.Context, conn string) error
	DiscoverSources(ctx context.Context) ([]DiscoveredSource, error)
}

// StreamParams describes a stream to create or the new state of an edited
// one. A non-empty URL is stored as given; otherwise the structured fields
// are encoded. Profile, when set, selects the mode and fills transcode
// fields left empty.
type StreamParams struct {
	Name          string
	URL           string
	SourceAddress string
	Mode          Mode
	Profile       Profile
	Transcode     TranscodeParams
}

// ServiceOptions contains the collaborators of a service. Only Registry is
// required.
type ServiceOptions struct {
	Registry         Registry
	EventBus         *events.Bus
	Prober           Prober
	Scanner          Scanner
	Validator        URLValidator
	ImportWorkers    int
	ProbeTimeout     time.Duration
	DiscoveryTimeout time.Duration
}

type service struct {
	registry         Registry
	eventBus         *events.Bus
	prober           Prober
	scanner          Scanner
	validator        URLValidator
	importer         *Importer
	probeTimeout     time.Duration
	discoveryTimeout time.Duration
	logger           *slog.Logger
}

// NewStreamService creates a stream service.
func NewStreamService(opts ServiceOptions) StreamService {
	if opts.Validator == nil {
		opts.Validator = DefaultURLValidator
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	return &service{
		registry:  opts.Registry,
		eventBus:  opts.EventBus,
		prober:    opts.Prober,
		scanner:   opts.Scanner,
		validator: opts.Validator,
		importer: NewImporter(opts.Registry, ImporterOptions{
			Workers:   opts.ImportWorkers,
			Validator: opts.Validator,
		}),
		probeTimeout:     opts.ProbeTimeout,
		discoveryTimeout: opts.DiscoveryTimeout,
		logger:           logging.GetLogger("streams"),
	}
}

func (s *service) CreateStream(ctx context.Context, params StreamParams) (*Stream, error) {
	if err := ValidateName(params.Name); err != nil {
		return nil, err
	}
	conn, err := s.connectionString(params)
	if err != nil {
		return nil, err
	}

	err = s.registry.Put(ctx, params.Name, conn)
	metrics.RecordRegistryOperation("put", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stream created", "name", params.Name, "url", RedactAddress(conn))
	s.eventBus.Publish(events.StreamCreatedEvent{
		Name:      params.Name,
		URL:       conn,
		Timestamp: now(),
	})
	return s.describe(params.Name, conn), nil
}

// UpdateStream replaces the stream stored under name. If params.Name names a
// different stream the entry is renamed: the new name is written first and
// the old one removed after, so a failed rename never loses the entry.
func (s *service) UpdateStream(ctx context.Context, name string, params StreamParams) (*Stream, error) {
	newName := params.Name
	if newName == "" {
		newName = name
	}
	if newName != name {
		if err := ValidateName(newName); err != nil {
			return nil, err
		}
	}
	conn, err := s.connectionString(params)
	if err != nil {
		return nil, err
	}

	if newName == name {
		err = s.registry.Update(ctx, name, conn)
		metrics.RecordRegistryOperation("update", err)
		if err != nil {
			return nil, err
		}
	} else if err := s.rename(ctx, name, newName, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Stream updated", "name", newName, "previous_name", name, "url", RedactAddress(conn))
	s.eventBus.Publish(events.StreamUpdatedEvent{
		Name:         newName,
		PreviousName: name,
		URL:          conn,
		Timestamp:    now(),
	})
	return s.describe(newName, conn), nil
}

func (s *service) rename(ctx context.Context, oldName, newName, conn string) error {
	_, err := s.registry.Get(ctx, oldName)
	metrics.RecordRegistryOperation("get", err)
	if err != nil {
		return err
	}

	err = s.registry.Put(ctx, newName, conn)
	metrics.RecordRegistryOperation("put", err)
	if err != nil {
		return err
	}

	err = s.registry.Delete(ctx, oldName)
	metrics.RecordRegistryOperation("delete", err)
	if err != nil {
		if rbErr := s.registry.Delete(ctx, newName); rbErr != nil {
			s.logger.Error("Failed to roll back rename", "name", newName, "error", rbErr)
		}
		return fmt.Errorf("remove '%s' after rename: %w", oldName, err)
	}
	return nil
}

func (s *service) DeleteStream(ctx context.Context, name string) error {
	err := s.registry.Delete(ctx, name)
	metrics.RecordRegistryOperation("delete", err)
	if err != nil {
		return err
	}

	s.logger.Info("Stream deleted", "name", name)
	s.eventBus.Publish(events.StreamDeletedEvent{Name: name, Timestamp: now()})
	return nil
}

func (s *service) GetStream(ctx context.Context, name string) (*Stream, error) {
	conn, err := s.registry.Get(ctx, name)
	metrics.RecordRegistryOperation("get", err)
	if err != nil {
		return nil, err
	}
	return s.describe(name, conn), nil
}

func (s *service) ListStreams(ctx context.Context) ([]Stream, error) {
	entries, err := s.registry.List(ctx)
	metrics.RecordRegistryOperation("list", err)
	if err != nil {
		return nil, err
	}

	out := make([]Stream, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *s.describe(entry.Name, entry.ConnectionString))
	}
	return out, nil
}

func (s *service) ImportStreams(ctx context.Context, rows []ImportRow) ImportResult {
	result, names := s.importer.run(ctx, rows)

	s.eventBus.Publish(events.StreamsImportedEvent{
		BatchID:   result.BatchID,
		Names:     names,
		Success:   result.SuccessCount,
		Failed:    result.FailureCount,
		Timestamp: now(),
	})
	return result
}

func (s *service) EncodeConfig(cfg StreamConfig) (string, error) {
	conn, err := Encode(cfg)
	if err == nil {
		metrics.RecordCodecOperation("encode", string(normalizeMode(cfg.Mode)))
	}
	return conn, err
}

func (s *service) DecodeConnection(conn string) (StreamConfig, Profile) {
	cfg := Decode(conn)
	metrics.RecordCodecOperation("decode", string(cfg.Mode))
	return cfg, Classify(cfg)
}

// ProbeSource probes the source address behind conn, so transcode markers
// and tokens never reach the prober.
func (s *service) ProbeSource(ctx context.Context, conn string) error {
	if s.prober == nil {
		return NewStreamError(ErrCodeProbeFailed, "probing is not configured", nil)
	}
	address := Decode(conn).SourceAddress
	if err := s.validator(address); err != nil {
		return NewStreamError(ErrCodeInvalidParams, "invalid url", err)
	}

	if err := s.prober.Probe(ctx, address, s.probeTimeout); err != nil {
		s.logger.Warn("Probe failed", "url", RedactAddress(address), "error", err)
		var streamErr *StreamError
		if errors.As(err, &streamErr) {
			return err
		}
		return NewStreamError(ErrCodeProbeFailed, "source is not reachable", err)
	}
	return nil
}

func (s *service) DiscoverSources(ctx context.Context) ([]DiscoveredSource, error) {
	if s.scanner == nil {
		return nil, NewStreamError(ErrCodeInvalidParams, "discovery is not configured", nil)
	}
	found, err := s.scanner.Scan(ctx, s.discoveryTimeout)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Discovery finished", "found", len(found))
	return found, nil
}

// connectionString validates params and produces the string to store.
func (s *service) connectionString(params StreamParams) (string, error) {
	if params.URL != "" {
		if err := s.validator(Decode(params.URL).SourceAddress); err != nil {
			return "", NewStreamError(ErrCodeInvalidParams, "invalid url", err)
		}
		return params.URL, nil
	}

	cfg := StreamConfig{
		Name:          params.Name,
		SourceAddress: params.SourceAddress,
		Mode:          params.Mode,
		Transcode:     params.Transcode,
	}
	if params.Profile != "" {
		cfg.Mode, cfg.Transcode = applyProfile(params.Profile, params.Transcode)
	}
	if err := s.validator(cfg.SourceAddress); err != nil {
		return "", NewStreamError(ErrCodeInvalidConfig, "invalid source address", err)
	}
	return s.EncodeConfig(cfg)
}

// applyProfile overlays the profile's settings on explicit parameters.
// Explicit values win. Direct profiles discard transcode parameters.
func applyProfile(p Profile, explicit TranscodeParams) (Mode, TranscodeParams) {
	mode, defaults := ProfileConfig(p)
	if mode != ModeTranscode {
		return mode, TranscodeParams{}
	}
	if explicit.VideoCodec == "" {
		explicit.VideoCodec = defaults.VideoCodec
	}
	if explicit.Preset == "" {
		explicit.Preset = defaults.Preset
	}
	return mode, explicit
}

func (s *service) describe(name, conn string) *Stream {
	cfg, profile := s.DecodeConnection(conn)
	cfg.Name = name
	return &Stream{
		Name:             name,
		ConnectionString: conn,
		Config:           cfg,
		Profile:          profile,
	}
}

func normalizeMode(m Mode) Mode {
	if m == "" {
		return ModeDirect
	}
	return m
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
