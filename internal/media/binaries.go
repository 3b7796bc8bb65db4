package media

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const (
	EnvFFmpegPath  = "CUESYNC_FFMPEG_PATH"
	EnvFFprobePath = "CUESYNC_FFPROBE_PATH"
)

var ErrBinaryNotFound = errors.New("binary not found")

// Binaries holds resolved paths to the ffmpeg tools.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// Resolve picks each binary from the explicit path, then the CUESYNC_*
// environment variable, then PATH.
func Resolve(ffmpegPath, ffprobePath string) (Binaries, error) {
	ffmpeg, err := resolveOne("ffmpeg", ffmpegPath, EnvFFmpegPath)
	if err != nil {
		return Binaries{}, err
	}
	ffprobe, err := resolveOne("ffprobe", ffprobePath, EnvFFprobePath)
	if err != nil {
		return Binaries{}, err
	}
	return Binaries{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

func resolveOne(name, explicit, env string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w (install it or set %s)", name, ErrBinaryNotFound, env)
	}
	return found, nil
}

// Prober returns an ffprobe wrapper using the resolved path.
func (b Binaries) Prober() *FFprobe {
	return &FFprobe{Path: b.FFprobe}
}
