package streams

import (
	"fmt"
	"strings"
)

// Connection string markers and token prefixes understood by go2rtc.
const (
	MarkerFFmpeg = "ffmpeg:"
	MarkerExec   = "exec:"

	tokenSeparator = "#"
	tokenVideo     = "video="
	tokenAudio     = "audio="
	tokenHWAccel   = "hwaccel="
	tokenRaw       = "raw="
)

// Encode serializes cfg into the connection string stored in the registry.
//
// Direct sources are returned unchanged. Transcoded sources become
// "ffmpeg:<address>" followed by video, audio, hwaccel and preset tokens in
// that order, each only when set, then any extra tokens. Presets outside the
// preset table are dropped, and the preset token is left out when an extra
// token already names the preset. A transcoded source with nothing set
// encodes as the bare "ffmpeg:<address>", which go2rtc accepts.
func Encode(cfg StreamConfig) (string, error) {
	if cfg.SourceAddress == "" {
		return "", NewStreamError(ErrCodeInvalidConfig, "source address is required", nil)
	}

	switch cfg.Mode {
	case ModeDirect, "":
		return cfg.SourceAddress, nil
	case ModeTranscode:
	default:
		return "", NewStreamError(ErrCodeInvalidConfig, fmt.Sprintf("unknown mode '%s'", cfg.Mode), nil)
	}

	params := cfg.Transcode
	var b strings.Builder
	b.WriteString(MarkerFFmpeg)
	b.WriteString(cfg.SourceAddress)

	writeToken := func(token string) {
		b.WriteString(tokenSeparator)
		b.WriteString(token)
	}

	if params.VideoCodec != "" {
		writeToken(tokenVideo + params.VideoCodec)
	}
	if params.AudioCodec != "" {
		writeToken(tokenAudio + params.AudioCodec)
	}
	if params.HWAccel != "" {
		writeToken(tokenHWAccel + params.HWAccel)
	}
	if flag, ok := params.Preset.Flag(); ok && !presetInExtra(params) {
		writeToken(tokenRaw + flag)
	}
	for _, extra := range params.Extra {
		if extra != "" {
			writeToken(extra)
		}
	}

	return b.String(), nil
}

// Decode recovers a StreamConfig from a connection string. It never fails:
// anything without a transcode marker, or with a marker but no address, is
// returned as a direct source with the input as its address.
//
// Codec tokens are matched by prefix and the first occurrence wins. Any
// other token is probed for each preset name in table order until a preset
// is found. Only an exact "raw=-preset <name>" token is consumed; a longer
// token naming a preset sets it and is also kept. Tokens nothing claimed,
// including repeats of a known token, land in Transcode.Extra.
func Decode(conn string) StreamConfig {
	direct := StreamConfig{Mode: ModeDirect, SourceAddress: conn}

	var rest string
	switch {
	case strings.HasPrefix(conn, MarkerFFmpeg):
		rest = strings.TrimPrefix(conn, MarkerFFmpeg)
	case strings.HasPrefix(conn, MarkerExec):
		rest = strings.TrimPrefix(conn, MarkerExec)
	default:
		return direct
	}

	segments := strings.Split(rest, tokenSeparator)
	if segments[0] == "" {
		return direct
	}

	cfg := StreamConfig{Mode: ModeTranscode, SourceAddress: segments[0]}
	params := &cfg.Transcode

	for _, token := range segments[1:] {
		if token == "" {
			continue
		}

		switch {
		case claim(&params.VideoCodec, token, tokenVideo):
		case claim(&params.AudioCodec, token, tokenAudio):
		case claim(&params.HWAccel, token, tokenHWAccel):
		case claimPreset(&params.Preset, token):
		default:
			params.Extra = append(params.Extra, token)
		}
	}

	return cfg
}

// claim stores the value of token in dst if token carries prefix, holds a
// value, and dst is still empty.
func claim(dst *string, token, prefix string) bool {
	if *dst != "" || !strings.HasPrefix(token, prefix) {
		return false
	}
	value := strings.TrimPrefix(token, prefix)
	if value == "" {
		return false
	}
	*dst = value
	return true
}

// claimPreset sets dst to the preset named in token if dst is still empty.
// It reports whether token was the preset's own flag and nothing else.
func claimPreset(dst *Preset, token string) bool {
	if *dst != "" {
		return false
	}
	preset, ok := matchPreset(token)
	if !ok {
		return false
	}
	*dst = preset
	flag, _ := preset.Flag()
	return token == tokenRaw+flag
}

// presetInExtra reports whether an extra token already carries the preset.
func presetInExtra(params TranscodeParams) bool {
	for _, extra := range params.Extra {
		if preset, ok := matchPreset(extra); ok && preset == params.Preset {
			return true
		}
	}
	return false
}

// matchPreset returns the first preset, in table order, whose name occurs in
// token.
func matchPreset(token string) (Preset, bool) {
	for _, entry := range presetTable {
		if strings.Contains(token, string(entry.preset)) {
			return entry.preset, true
		}
	}
	return "", false
}
