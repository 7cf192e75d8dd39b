package streams

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// URLValidator decides whether a raw source address is plausible enough to
// store. It never contacts the source.
type URLValidator func(address string) error

var (
	errURLRequired      = errors.New("url is required")
	errURLWhitespace    = errors.New("url must not contain whitespace or control characters")
	errURLSeparator     = errors.New("url must not contain '#'")
	errURLMissingScheme = errors.New("url must include a scheme (e.g. rtsp://) or be an absolute device path")
	errURLTranscoded    = errors.New("url must be a plain source address, not an ffmpeg: or exec: string")
)

// DefaultURLValidator accepts "scheme://..." URLs, opaque "scheme:..." URIs
// and absolute device or file paths such as /dev/video0. Addresses carrying
// a transcode marker are rejected since they would not decode as direct.
func DefaultURLValidator(address string) error {
	if address == "" {
		return errURLRequired
	}
	if HasTranscodeMarker(address) {
		return errURLTranscoded
	}
	if strings.IndexFunc(address, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return errURLWhitespace
	}
	if strings.Contains(address, tokenSeparator) {
		return errURLSeparator
	}
	if strings.HasPrefix(address, "/") {
		return nil
	}

	if idx := strings.Index(address, "://"); idx >= 0 {
		if idx == 0 || !validScheme(address[:idx]) {
			return errURLMissingScheme
		}
		return nil
	}

	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" || u.Opaque == "" {
		return errURLMissingScheme
	}
	return nil
}

// HasTranscodeMarker reports whether address starts with ffmpeg: or exec:.
func HasTranscodeMarker(address string) bool {
	return strings.HasPrefix(address, MarkerFFmpeg) || strings.HasPrefix(address, MarkerExec)
}

// validScheme follows RFC 3986: a letter followed by letters, digits, '+', '-' or '.'.
func validScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return s != ""
}

// ValidateName checks a stream name. Names end up as go2rtc stream names and
// registry file keys, so whitespace, control characters, '/' and '#' are
// rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewStreamError(ErrCodeInvalidParams, "name is required", nil)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' || r == '#'
	}) >= 0 {
		return NewStreamError(ErrCodeInvalidParams,
			"name must not contain whitespace, control characters, '/' or '#'", nil)
	}
	return nil
}

// RedactAddress strips credentials from a source address so it can be logged.
// Transcode markers and tokens are kept.
func RedactAddress(address string) string {
	schemeEnd := strings.Index(address, "://")
	if schemeEnd < 0 {
		return address
	}
	hostStart := schemeEnd + len("://")
	rest := address[hostStart:]

	authorityEnd := strings.IndexAny(rest, "/?#")
	if authorityEnd < 0 {
		authorityEnd = len(rest)
	}
	at := strings.LastIndex(rest[:authorityEnd], "@")
	if at < 0 {
		return address
	}
	return address[:hostStart] + "***@" + rest[at+1:]
}
