package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// testOptions mirrors the shape of the server Options struct.
type testOptions struct {
	Config string `help:"Config file path"`

	Port             int           `toml:"server.port" env:"PORT"`
	RegistryBackend  string        `toml:"registry.backend" env:"REGISTRY_BACKEND"`
	EngineSync       bool          `toml:"engine.sync" env:"ENGINE_SYNC"`
	ProbeTimeout     time.Duration `toml:"probe.timeout" env:"PROBE_TIMEOUT"`
	DiscoverySubnets []string      `toml:"discovery.subnets" env:"DISCOVERY_SUBNETS"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090

[registry]
backend = "yaml"

[engine]
sync = true

[probe]
timeout = "5s"

[discovery]
subnets = ["192.168.1.0/24", "10.0.0.0/24"]
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 9090 {
		t.Errorf("Port = %d, want 9090", opts.Port)
	}
	if opts.RegistryBackend != "yaml" {
		t.Errorf("RegistryBackend = %q, want yaml", opts.RegistryBackend)
	}
	if !opts.EngineSync {
		t.Error("EngineSync = false, want true")
	}
	if opts.ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %v, want 5s", opts.ProbeTimeout)
	}
	wantSubnets := []string{"192.168.1.0/24", "10.0.0.0/24"}
	if !reflect.DeepEqual(opts.DiscoverySubnets, wantSubnets) {
		t.Errorf("DiscoverySubnets = %v, want %v", opts.DiscoverySubnets, wantSubnets)
	}
}

func TestLoadConfigIntegerDuration(t *testing.T) {
	path := writeConfig(t, "[probe]\ntimeout = 20\n")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.ProbeTimeout != 20*time.Second {
		t.Errorf("ProbeTimeout = %v, want 20s", opts.ProbeTimeout)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("STREAMCTL_PORT", "8181")
	t.Setenv("STREAMCTL_REGISTRY_BACKEND", "postgres")
	t.Setenv("STREAMCTL_ENGINE_SYNC", "true")
	t.Setenv("STREAMCTL_PROBE_TIMEOUT", "1500ms")
	t.Setenv("STREAMCTL_DISCOVERY_SUBNETS", " 192.168.0.0/24 , 10.1.1.0/24 ")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 8181 {
		t.Errorf("Port = %d, want 8181", opts.Port)
	}
	if opts.RegistryBackend != "postgres" {
		t.Errorf("RegistryBackend = %q, want postgres", opts.RegistryBackend)
	}
	if !opts.EngineSync {
		t.Error("EngineSync = false, want true")
	}
	if opts.ProbeTimeout != 1500*time.Millisecond {
		t.Errorf("ProbeTimeout = %v, want 1.5s", opts.ProbeTimeout)
	}
	wantSubnets := []string{"192.168.0.0/24", "10.1.1.0/24"}
	if !reflect.DeepEqual(opts.DiscoverySubnets, wantSubnets) {
		t.Errorf("DiscoverySubnets = %v, want %v", opts.DiscoverySubnets, wantSubnets)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9090\n\n[registry]\nbackend = \"yaml\"\n")
	t.Setenv("STREAMCTL_PORT", "7070")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from env", opts.Port)
	}
	if opts.RegistryBackend != "yaml" {
		t.Errorf("RegistryBackend = %q, want yaml from TOML", opts.RegistryBackend)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9090\n")
	t.Setenv("STREAMCTL_REGISTRY_BACKEND", "postgres")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.Port, "port", 1984, "")
	cmd.Flags().StringVar(&opts.RegistryBackend, "registry-backend", "toml", "")
	if err := cmd.Flags().Parse([]string{"--port", "6060", "--registry-backend", "yaml"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Port != 6060 {
		t.Errorf("Port = %d, want 6060 from CLI", opts.Port)
	}
	if opts.RegistryBackend != "yaml" {
		t.Errorf("RegistryBackend = %q, want yaml from CLI", opts.RegistryBackend)
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		result := getNestedValue(data, test.path)
		if result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":            "port",
		"RegistryBackend": "registry-backend",
		"LoggingLevel":    "logging-level",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[server\ninvalid toml syntax\n")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
api = "error"

[logging.modules]
importer = "debug"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"api": "error", "importer": "debug"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("")
	if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
