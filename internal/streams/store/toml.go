package store

import (
	"github.com/pelletier/go-toml/v2"
)

const tomlVersion = 1

// tomlFile is the layout of the TOML registry file:
//
//	version = 1
//
//	[streams]
//	cam1 = "rtsp://10.0.0.5:554/stream"
type tomlFile struct {
	Version int               `toml:"version"`
	Streams map[string]string `toml:"streams"`
}

type tomlFormat struct{}

func (tomlFormat) decode(data []byte) (map[string]string, error) {
	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Streams, nil
}

func (tomlFormat) encode(previous []byte, entries map[string]string) ([]byte, error) {
	file := tomlFile{Version: tomlVersion}
	if len(previous) > 0 {
		_ = toml.Unmarshal(previous, &file)
		if file.Version == 0 {
			file.Version = tomlVersion
		}
	}
	file.Streams = entries
	return toml.Marshal(file)
}

// TOML is a registry persisted in a streamctl TOML file.
type TOML struct {
	fileRegistry
}

// NewTOML creates a TOML registry. The file is created on first write.
func NewTOML(path string) *TOML {
	if path == "" {
		path = DefaultTOMLPath
	}
	return &TOML{fileRegistry{path: path, format: tomlFormat{}}}
}
