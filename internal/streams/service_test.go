package streams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smazurov/streamctl/internal/events"
)

type fakeProber struct {
	addresses []string
	timeout   time.Duration
	err       error
}

func (p *fakeProber) Probe(_ context.Context, address string, timeout time.Duration) error {
	p.addresses = append(p.addresses, address)
	p.timeout = timeout
	return p.err
}

type fakeScanner struct {
	found []DiscoveredSource
}

func (s *fakeScanner) Scan(_ context.Context, _ time.Duration) ([]DiscoveredSource, error) {
	return s.found, nil
}

func newTestService(reg Registry, opts ServiceOptions) StreamService {
	opts.Registry = reg
	return NewStreamService(opts)
}

func TestCreateStream(t *testing.T) {
	reg := newFakeRegistry()
	svc := newTestService(reg, ServiceOptions{})
	ctx := context.Background()

	tests := []struct {
		name        string
		params      StreamParams
		wantURL     string
		wantProfile Profile
	}{
		{
			name:        "raw url",
			params:      StreamParams{Name: "raw", URL: "rtsp://10.0.0.5/stream"},
			wantURL:     "rtsp://10.0.0.5/stream",
			wantProfile: ProfileH264Native,
		},
		{
			name: "structured transcode",
			params: StreamParams{
				Name:          "manual",
				SourceAddress: "rtsp://10.0.0.6/stream",
				Mode:          ModeTranscode,
				Transcode:     TranscodeParams{VideoCodec: "h265", Preset: PresetMedium},
			},
			wantURL:     "ffmpeg:rtsp://10.0.0.6/stream#video=h265#raw=-preset medium",
			wantProfile: ProfileManual,
		},
		{
			name:        "ultra low profile",
			params:      StreamParams{Name: "fast", SourceAddress: "rtsp://10.0.0.7/stream", Profile: ProfileUltraLowLatency},
			wantURL:     "ffmpeg:rtsp://10.0.0.7/stream#video=h264#raw=-preset ultrafast",
			wantProfile: ProfileUltraLowLatency,
		},
		{
			name: "native profile drops transcode params",
			params: StreamParams{
				Name:          "native",
				SourceAddress: "rtsp://10.0.0.8/stream",
				Profile:       ProfileH265Native,
				Transcode:     TranscodeParams{VideoCodec: "h264"},
			},
			wantURL:     "rtsp://10.0.0.8/stream",
			wantProfile: ProfileH264Native,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, err := svc.CreateStream(ctx, tt.params)
			if err != nil {
				t.Fatalf("CreateStream() error = %v", err)
			}
			if stream.ConnectionString != tt.wantURL {
				t.Errorf("url = %q, want %q", stream.ConnectionString, tt.wantURL)
			}
			if stream.Profile != tt.wantProfile {
				t.Errorf("profile = %s, want %s", stream.Profile, tt.wantProfile)
			}
			if stream.Config.Name != tt.params.Name {
				t.Errorf("config name = %q", stream.Config.Name)
			}
			if got := reg.snapshot()[tt.params.Name]; got != tt.wantURL {
				t.Errorf("registry has %q", got)
			}
		})
	}
}

func TestCreateStreamErrors(t *testing.T) {
	reg := newFakeRegistry()
	svc := newTestService(reg, ServiceOptions{})
	ctx := context.Background()

	if _, err := svc.CreateStream(ctx, StreamParams{Name: "cam1", URL: "rtsp://a"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		params   StreamParams
		wantCode string
	}{
		{"missing name", StreamParams{URL: "rtsp://a"}, ErrCodeInvalidParams},
		{"bad url", StreamParams{Name: "x", URL: "no scheme"}, ErrCodeInvalidParams},
		{"bad source inside transcode url", StreamParams{Name: "x", URL: "ffmpeg:nothing#video=h264"}, ErrCodeInvalidParams},
		{"missing source", StreamParams{Name: "x", Mode: ModeTranscode}, ErrCodeInvalidConfig},
		{"name with space", StreamParams{Name: "front door", URL: "rtsp://a"}, ErrCodeInvalidParams},
		{"direct source with marker", StreamParams{Name: "x", Mode: ModeDirect, SourceAddress: "exec:foo"}, ErrCodeInvalidConfig},
		{"duplicate", StreamParams{Name: "cam1", URL: "rtsp://b"}, ErrCodeDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStream(ctx, tt.params)
			if !HasCode(err, tt.wantCode) {
				t.Errorf("CreateStream() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestUpdateStreamInPlace(t *testing.T) {
	reg := newFakeRegistry()
	bus := events.New()
	updated := make(chan events.StreamUpdatedEvent, 1)
	unsub := bus.Subscribe(func(e events.StreamUpdatedEvent) { updated <- e })
	defer unsub()

	svc := newTestService(reg, ServiceOptions{EventBus: bus})
	ctx := context.Background()

	if _, err := svc.CreateStream(ctx, StreamParams{Name: "cam1", URL: "ffmpeg:rtsp://a#video=h264#rotate=90"}); err != nil {
		t.Fatal(err)
	}

	// Edit flow: decode, change the preset, encode.
	current, err := svc.GetStream(ctx, "cam1")
	if err != nil {
		t.Fatal(err)
	}
	params := current.Config.Transcode
	params.Preset = PresetUltrafast

	stream, err := svc.UpdateStream(ctx, "cam1", StreamParams{
		SourceAddress: current.Config.SourceAddress,
		Mode:          current.Config.Mode,
		Transcode:     params,
	})
	if err != nil {
		t.Fatalf("UpdateStream() error = %v", err)
	}

	wantURL := "ffmpeg:rtsp://a#video=h264#raw=-preset ultrafast#rotate=90"
	if stream.ConnectionString != wantURL {
		t.Errorf("url = %q, want %q", stream.ConnectionString, wantURL)
	}
	if stream.Profile != ProfileUltraLowLatency {
		t.Errorf("profile = %s", stream.Profile)
	}

	select {
	case e := <-updated:
		if e.Name != "cam1" || e.PreviousName != "cam1" || e.URL != wantURL {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no update event")
	}

	if _, err := svc.UpdateStream(ctx, "missing", StreamParams{URL: "rtsp://x"}); !HasCode(err, ErrCodeStreamNotFound) {
		t.Errorf("update of missing stream: %v", err)
	}
}

func TestUpdateStreamRename(t *testing.T) {
	reg := newFakeRegistry()
	svc := newTestService(reg, ServiceOptions{})
	ctx := context.Background()

	for _, name := range []string{"old", "taken"} {
		if _, err := svc.CreateStream(ctx, StreamParams{Name: name, URL: "rtsp://" + name}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.UpdateStream(ctx, "old", StreamParams{Name: "taken", URL: "rtsp://x"}); !HasCode(err, ErrCodeDuplicateName) {
		t.Errorf("rename onto existing name: %v", err)
	}
	if _, err := svc.UpdateStream(ctx, "ghost", StreamParams{Name: "new", URL: "rtsp://x"}); !HasCode(err, ErrCodeStreamNotFound) {
		t.Errorf("rename of missing stream: %v", err)
	}
	if _, err := svc.UpdateStream(ctx, "old", StreamParams{Name: "a/b", URL: "rtsp://x"}); !HasCode(err, ErrCodeInvalidParams) {
		t.Errorf("rename to invalid name: %v", err)
	}

	stream, err := svc.UpdateStream(ctx, "old", StreamParams{Name: "new", URL: "rtsp://moved"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if stream.Name != "new" {
		t.Errorf("name = %q", stream.Name)
	}

	got := reg.snapshot()
	if _, ok := got["old"]; ok {
		t.Error("old name should be gone")
	}
	if got["new"] != "rtsp://moved" || got["taken"] != "rtsp://taken" {
		t.Errorf("registry = %v", got)
	}
}

func TestUpdateStreamRenameRollback(t *testing.T) {
	reg := newFakeRegistry()
	svc := newTestService(reg, ServiceOptions{})
	ctx := context.Background()

	if _, err := svc.CreateStream(ctx, StreamParams{Name: "old", URL: "rtsp://a"}); err != nil {
		t.Fatal(err)
	}
	reg.failDel["old"] = errors.New("locked")

	if _, err := svc.UpdateStream(ctx, "old", StreamParams{Name: "new", URL: "rtsp://b"}); err == nil {
		t.Fatal("expected rename to fail")
	}

	got := reg.snapshot()
	if got["old"] != "rtsp://a" {
		t.Errorf("old entry should survive, registry = %v", got)
	}
	if _, ok := got["new"]; ok {
		t.Errorf("new entry should be rolled back, registry = %v", got)
	}
}

func TestDeleteAndList(t *testing.T) {
	reg := newFakeRegistry()
	bus := events.New()
	deleted := make(chan events.StreamDeletedEvent, 1)
	unsub := bus.Subscribe(func(e events.StreamDeletedEvent) { deleted <- e })
	defer unsub()

	svc := newTestService(reg, ServiceOptions{EventBus: bus})
	ctx := context.Background()

	for _, p := range []StreamParams{
		{Name: "b", URL: "ffmpeg:rtsp://b#video=h264#raw=-preset ultrafast"},
		{Name: "a", URL: "rtsp://a"},
	} {
		if _, err := svc.CreateStream(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.ListStreams(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].Profile != ProfileUltraLowLatency {
		t.Errorf("list = %+v", list)
	}

	if err := svc.DeleteStream(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteStream(ctx, "a"); !HasCode(err, ErrCodeStreamNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, err := svc.GetStream(ctx, "a"); !HasCode(err, ErrCodeStreamNotFound) {
		t.Errorf("get after delete: %v", err)
	}

	select {
	case e := <-deleted:
		if e.Name != "a" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no delete event")
	}
}

func TestImportStreamsPublishesEvent(t *testing.T) {
	bus := events.New()
	imported := make(chan events.StreamsImportedEvent, 1)
	unsub := bus.Subscribe(func(e events.StreamsImportedEvent) { imported <- e })
	defer unsub()

	svc := newTestService(newFakeRegistry(), ServiceOptions{EventBus: bus})
	result := svc.ImportStreams(context.Background(), []ImportRow{
		{Name: "cam1", URL: "rtsp://a"},
		{Name: "", URL: "rtsp://b"},
		{Name: "cam3", URL: "rtsp://c"},
	})

	select {
	case e := <-imported:
		if e.BatchID != result.BatchID || e.Success != 2 || e.Failed != 1 {
			t.Errorf("event = %+v, result = %+v", e, result)
		}
		if len(e.Names) != 2 || e.Names[0] != "cam1" || e.Names[1] != "cam3" {
			t.Errorf("names = %v", e.Names)
		}
	case <-time.After(time.Second):
		t.Fatal("no import event")
	}
}

func TestProbeSource(t *testing.T) {
	prober := &fakeProber{}
	svc := newTestService(newFakeRegistry(), ServiceOptions{Prober: prober, ProbeTimeout: 3 * time.Second})
	ctx := context.Background()

	if err := svc.ProbeSource(ctx, "ffmpeg:rtsp://10.0.0.5/s#video=h264"); err != nil {
		t.Fatalf("ProbeSource() error = %v", err)
	}
	if len(prober.addresses) != 1 || prober.addresses[0] != "rtsp://10.0.0.5/s" {
		t.Errorf("probed %v, want the bare source address", prober.addresses)
	}
	if prober.timeout != 3*time.Second {
		t.Errorf("timeout = %v", prober.timeout)
	}

	prober.err = errors.New("connection refused")
	err := svc.ProbeSource(ctx, "rtsp://10.0.0.9/s")
	if !HasCode(err, ErrCodeProbeFailed) || !errors.Is(err, prober.err) {
		t.Errorf("ProbeSource() error = %v, want PROBE_FAILED wrapping the cause", err)
	}

	if err := svc.ProbeSource(ctx, "nonsense"); !HasCode(err, ErrCodeInvalidParams) {
		t.Errorf("invalid url: %v", err)
	}
}

func TestProbeAndDiscoverUnconfigured(t *testing.T) {
	svc := newTestService(newFakeRegistry(), ServiceOptions{})
	ctx := context.Background()

	if err := svc.ProbeSource(ctx, "rtsp://a"); !HasCode(err, ErrCodeProbeFailed) {
		t.Errorf("ProbeSource() error = %v", err)
	}
	if _, err := svc.DiscoverSources(ctx); !HasCode(err, ErrCodeInvalidParams) {
		t.Errorf("DiscoverSources() error = %v", err)
	}
}

func TestDiscoverSources(t *testing.T) {
	scanner := &fakeScanner{found: []DiscoveredSource{{Address: "10.0.0.5:554", URL: "rtsp://10.0.0.5:554/stream"}}}
	svc := newTestService(newFakeRegistry(), ServiceOptions{Scanner: scanner})

	found, err := svc.DiscoverSources(context.Background())
	if err != nil || len(found) != 1 || found[0].URL != "rtsp://10.0.0.5:554/stream" {
		t.Errorf("DiscoverSources() = %+v, %v", found, err)
	}
}

func TestCodecThroughService(t *testing.T) {
	svc := newTestService(newFakeRegistry(), ServiceOptions{})

	conn, err := svc.EncodeConfig(StreamConfig{Mode: ModeTranscode, SourceAddress: "rtsp://a", Transcode: TranscodeParams{VideoCodec: "h264"}})
	if err != nil || conn != "ffmpeg:rtsp://a#video=h264" {
		t.Errorf("EncodeConfig() = %q, %v", conn, err)
	}

	cfg, profile := svc.DecodeConnection(conn)
	if cfg.SourceAddress != "rtsp://a" || profile != ProfileManual {
		t.Errorf("DecodeConnection() = %+v, %s", cfg, profile)
	}
}
