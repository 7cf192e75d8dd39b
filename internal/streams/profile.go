package streams

import (
	"fmt"
	"strings"
)

// Profile is a named bundle of transcode settings offered as a one-click
// choice when editing a stream. It is derived from a StreamConfig and never
// stored.
type Profile string

const (
	ProfileH264Native      Profile = "h264_native"
	ProfileH265Native      Profile = "h265_native"
	ProfileUltraLowLatency Profile = "ultra_low"
	ProfileManual          Profile = "manual"
)

// Classify maps cfg to the profile whose settings it matches.
//
// Direct sources always classify as H264Native: a direct connection string
// carries no codec marker, so H265Native is only reachable by choosing it
// explicitly.
func Classify(cfg StreamConfig) Profile {
	if cfg.Mode != ModeTranscode {
		return ProfileH264Native
	}

	params := cfg.Transcode
	if params.VideoCodec == "h264" &&
		params.Preset == PresetUltrafast &&
		(params.HWAccel == "" || params.HWAccel == "auto") {
		return ProfileUltraLowLatency
	}
	return ProfileManual
}

// ProfileConfig returns the mode and parameters a profile selects.
func ProfileConfig(p Profile) (Mode, TranscodeParams) {
	switch p {
	case ProfileUltraLowLatency:
		return ModeTranscode, TranscodeParams{VideoCodec: "h264", Preset: PresetUltrafast}
	case ProfileManual:
		return ModeTranscode, TranscodeParams{}
	default:
		return ModeDirect, TranscodeParams{}
	}
}

// ParseProfile parses a profile name, case-insensitively.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case ProfileH264Native, ProfileH265Native, ProfileUltraLowLatency, ProfileManual:
		return p, nil
	default:
		return "", NewStreamError(ErrCodeInvalidParams, fmt.Sprintf("unknown profile '%s'", s), nil)
	}
}
