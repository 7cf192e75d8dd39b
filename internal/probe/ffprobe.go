// Package probe checks source reachability with ffprobe.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/streams"
)

// DefaultBinary is looked up in PATH.
const DefaultBinary = "ffprobe"

// connectTimeout bounds the socket timeout handed to ffprobe.
const connectTimeout = 10 * time.Second

// FFprobe implements streams.Prober by running ffprobe.
type FFprobe struct {
	binary string
	logger *slog.Logger
}

// New creates a prober. An empty binary means DefaultBinary.
func New(binary string) *FFprobe {
	if binary == "" {
		binary = DefaultBinary
	}
	return &FFprobe{
		binary: binary,
		logger: logging.GetLogger("probe"),
	}
}

// Args builds the ffprobe command line for address. RTSP sources are forced
// onto TCP.
func Args(address string, timeout time.Duration) []string {
	args := []string{"-v", "error", "-show_entries", "stream=codec_type"}

	if isRTSP(address) {
		socketTimeout := connectTimeout
		if timeout > 0 && timeout < socketTimeout {
			socketTimeout = timeout
		}
		args = append(args,
			"-rtsp_transport", "tcp",
			"-timeout", strconv.FormatInt(socketTimeout.Microseconds(), 10),
		)
	}
	return append(args, "-i", address)
}

func isRTSP(address string) bool {
	lower := strings.ToLower(address)
	return strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "rtsps://")
}

// Probe runs ffprobe against address and fails if it cannot open the source
// within timeout.
func (p *FFprobe) Probe(ctx context.Context, address string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = streams.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.binary, Args(address, timeout)...)
	cmd.WaitDelay = time.Second
	output, err := cmd.CombinedOutput()

	p.logger.Debug("Probe finished",
		"url", streams.RedactAddress(address),
		"duration", time.Since(start),
		"error", err)

	if err == nil {
		return nil
	}

	var execErr *exec.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return streams.NewStreamError(streams.ErrCodeProbeFailed,
			fmt.Sprintf("connection timeout (%s) - stream might be too slow or unreachable", timeout), nil)
	case errors.As(err, &execErr), errors.Is(err, fs.ErrNotExist):
		return streams.NewStreamError(streams.ErrCodeProbeFailed, "ffprobe is not available", err)
	}

	if out := strings.TrimSpace(string(output)); out != "" {
		return streams.NewStreamError(streams.ErrCodeProbeFailed, "stream validation failed: "+out, nil)
	}
	return streams.NewStreamError(streams.ErrCodeProbeFailed,
		"cannot connect to stream - check URL, credentials, and network connectivity", err)
}
