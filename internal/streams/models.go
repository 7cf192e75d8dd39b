package streams

// Mode selects how the streaming engine consumes a source.
type Mode string

const (
	// ModeDirect hands the source address to the engine unmodified.
	ModeDirect Mode = "direct"
	// ModeTranscode wraps the source in an ffmpeg transcoding step.
	ModeTranscode Mode = "transcode"
)

// Preset is an x264-style encoder speed preset.
type Preset string

const (
	PresetUltrafast Preset = "ultrafast"
	PresetSuperfast Preset = "superfast"
	PresetMedium    Preset = "medium"
)

// presetFlag pairs a preset with the raw encoder flag it maps to.
type presetFlag struct {
	preset Preset
	flag   string
}

// presetTable is closed and ordered. Decoding probes it top to bottom and the
// first match wins.
var presetTable = []presetFlag{
	{PresetUltrafast, "-preset ultrafast"},
	{PresetSuperfast, "-preset superfast"},
	{PresetMedium, "-preset medium"},
}

// Flag returns the raw encoder flag for p, or false if p is not in the table.
func (p Preset) Flag() (string, bool) {
	for _, entry := range presetTable {
		if entry.preset == p {
			return entry.flag, true
		}
	}
	return "", false
}

// Presets lists the supported presets in probe order.
func Presets() []Preset {
	out := make([]Preset, len(presetTable))
	for i, entry := range presetTable {
		out[i] = entry.preset
	}
	return out
}

// TranscodeParams holds the ffmpeg options of a transcoded source.
// Values are free-form tokens passed through to the engine.
type TranscodeParams struct {
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
	HWAccel    string `json:"hwaccel,omitempty"`
	Preset     Preset `json:"preset,omitempty"`

	// Extra holds decoded tokens no known field claimed, in original order.
	// They are re-emitted after the known tokens on encode.
	Extra []string `json:"extra,omitempty"`
}

// StreamConfig is the structured form of a registry entry.
type StreamConfig struct {
	Name          string          `json:"name"`
	SourceAddress string          `json:"source_address"`
	Mode          Mode            `json:"mode"`
	Transcode     TranscodeParams `json:"transcode"`
}

// Entry is a raw registry record.
type Entry struct {
	Name             string `json:"name"`
	ConnectionString string `json:"url"`
}

// Stream is a registry entry together with its decoded view.
type Stream struct {
	Name             string       `json:"name"`
	ConnectionString string       `json:"url"`
	Config           StreamConfig `json:"config"`
	Profile          Profile      `json:"profile"`
}

// ImportRow is one record of a tabular import.
type ImportRow struct {
	Name string
	URL  string

	// Err is set by the parser when the record itself was malformed.
	Err error
}

// ImportResult summarizes one batch import. Errors is never truncated.
type ImportResult struct {
	BatchID      string   `json:"batch_id,omitempty"`
	SuccessCount int      `json:"success"`
	FailureCount int      `json:"failed"`
	Errors       []string `json:"errors"`
}
