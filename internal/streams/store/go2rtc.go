package store

import (
	"context"
	"errors"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

const go2rtcStreamsKey = "streams"

// go2rtcFormat reads and writes the streams section of a go2rtc.yaml file,
// leaving every other section and its comments untouched. A stream listed
// with several sources is read as its first source; such a stream is
// written back unchanged as long as its first source is not edited. Streams
// without a source, such as publish-only placeholders, are not registry
// entries but are written back as they were.
type go2rtcFormat struct{}

func (go2rtcFormat) decode(data []byte) (map[string]string, error) {
	streamsNode, err := findStreams(data)
	if err != nil || streamsNode == nil {
		return nil, err
	}

	entries := make(map[string]string, len(streamsNode.Content)/2)
	for i := 0; i+1 < len(streamsNode.Content); i += 2 {
		name := streamsNode.Content[i].Value
		if source, ok := firstSource(streamsNode.Content[i+1]); ok {
			entries[name] = source
		}
	}
	return entries, nil
}

func (go2rtcFormat) encode(previous []byte, entries map[string]string) ([]byte, error) {
	var doc yaml.Node
	if len(previous) > 0 {
		if err := yaml.Unmarshal(previous, &doc); err != nil {
			return nil, err
		}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("go2rtc config root is not a mapping")
	}

	old := streamsValue(root)
	kept := make(map[string]*yaml.Node)
	if old != nil {
		for i := 0; i+1 < len(old.Content); i += 2 {
			kept[old.Content[i].Value] = old.Content[i+1]
		}
	}

	names := make(map[string]string, len(entries)+len(kept))
	maps.Copy(names, entries)
	for name, value := range kept {
		if _, ok := firstSource(value); !ok {
			if _, managed := names[name]; !managed {
				names[name] = ""
			}
		}
	}

	section := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range slices.Sorted(maps.Keys(names)) {
		value := kept[name]
		if conn, managed := entries[name]; managed {
			if source, ok := firstSource(value); !ok || source != conn {
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: conn}
			}
		}
		section.Content = append(section.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, value)
	}

	setStreamsValue(root, section)
	return yaml.Marshal(&doc)
}

func findStreams(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil
	}
	value := streamsValue(doc.Content[0])
	if value == nil || value.Kind != yaml.MappingNode {
		return nil, nil
	}
	return value, nil
}

func streamsValue(root *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == go2rtcStreamsKey {
			return root.Content[i+1]
		}
	}
	return nil
}

func setStreamsValue(root, value *yaml.Node) {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == go2rtcStreamsKey {
			root.Content[i+1] = value
			return
		}
	}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: go2rtcStreamsKey}, value)
}

// firstSource returns the source of a stream value: the scalar itself or the
// first scalar of a list.
func firstSource(n *yaml.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, n.Value != ""
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode && item.Value != "" {
				return item.Value, true
			}
		}
	}
	return "", false
}

// unmanaged returns the names of streams that have no source.
func (go2rtcFormat) unmanaged(data []byte) ([]string, error) {
	streamsNode, err := findStreams(data)
	if err != nil || streamsNode == nil {
		return nil, err
	}

	var names []string
	for i := 0; i+1 < len(streamsNode.Content); i += 2 {
		if _, ok := firstSource(streamsNode.Content[i+1]); !ok {
			names = append(names, streamsNode.Content[i].Value)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Go2RTC is a registry persisted directly in the streams section of the
// engine's go2rtc.yaml.
type Go2RTC struct {
	fileRegistry
}

// NewGo2RTC creates a registry over a go2rtc YAML config file.
func NewGo2RTC(path string) *Go2RTC {
	if path == "" {
		path = DefaultYAMLPath
	}
	return &Go2RTC{fileRegistry{path: path, format: go2rtcFormat{}}}
}

// Unmanaged lists the streams of the file that have no source. They are
// served by the engine but are not registry entries.
func (g *Go2RTC) Unmanaged(_ context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, registryError("failed to read registry file", err)
	}
	names, err := go2rtcFormat{}.unmanaged(data)
	if err != nil {
		return nil, registryError("failed to parse registry file", err)
	}
	return names, nil
}
