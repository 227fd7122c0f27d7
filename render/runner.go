package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Runner executes ffmpeg commands built by the planners in this package.
type Runner struct {
	logger     zerolog.Logger
	ffmpegPath string
}

// NewRunner resolves the ffmpeg binary from PATH.
func NewRunner(logger zerolog.Logger) (*Runner, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &Runner{
		logger:     logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath: path,
	}, nil
}

// Run executes ffmpeg with the given arguments. The -y and -hide_banner
// flags are always prepended; on failure the error carries the stderr tail
// since ffmpeg reports everything there.
func (r *Runner) Run(ctx context.Context, args []string) error {
	full := append([]string{"-y", "-hide_banner"}, args...)

	r.logger.Debug().
		Strs("args", full).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, r.ffmpegPath, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.Bytes(), 2048))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
