package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used (assumes it's in PATH).
	FFprobePath string

	// VideoCodec is the video codec to use when rotating.
	// Default: libx264
	VideoCodec string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Options: ultrafast, superfast, veryfast, faster, fast, medium, slow, slower, veryslow
	// Default: fast
	VideoPreset string

	// AudioCodec is the audio codec to use when rotating.
	// Use "copy" to pass audio through untouched.
	// Default: copy
	AudioCodec string
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		VideoCodec:  "libx264",
		VideoPreset: "fast",
		AudioCodec:  "copy",
	}
}

// FFmpegTranscoder implements Transcoder using the FFmpeg CLI tools.
type FFmpegTranscoder struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
func NewFFmpegTranscoder(cfg FFmpegConfig) *FFmpegTranscoder {
	return &FFmpegTranscoder{
		config: cfg,
	}
}

// probeStream mirrors the fields of ffprobe's JSON stream output that
// orientation detection needs.
type probeStream struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	SideData []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
	Tags struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// IsPortrait probes the first video stream and reports whether its
// effective display orientation is portrait. Rotation metadata of 90 or
// 270 degrees swaps the stored width and height.
func (t *FFmpegTranscoder) IsPortrait(ctx context.Context, inputPath string) (bool, error) {
	if err := t.validateInput(inputPath); err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, t.config.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:stream_tags=rotate:stream_side_data=rotation",
		"-of", "json",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("probe cancelled: %w", ctx.Err())
		}
		return false, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return false, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return false, fmt.Errorf("no video stream found in %s", filepath.Base(inputPath))
	}

	stream := probe.Streams[0]
	width, height := stream.Width, stream.Height
	if rotationSwapsAxes(stream) {
		width, height = height, width
	}

	return height > width, nil
}

// rotationSwapsAxes reports whether the stream's rotation metadata turns
// the stored frame by 90 or 270 degrees.
func rotationSwapsAxes(s probeStream) bool {
	for _, sd := range s.SideData {
		r := sd.Rotation % 360
		if r < 0 {
			r += 360
		}
		if r == 90 || r == 270 {
			return true
		}
	}
	switch strings.TrimSpace(s.Tags.Rotate) {
	case "90", "270", "-90":
		return true
	}
	return false
}

// Rotate rewrites the input rotated 90 degrees clockwise. The output is
// written next to the input with a "_rotated" suffix and the original
// file is left in place.
func (t *FFmpegTranscoder) Rotate(ctx context.Context, inputPath string) (string, error) {
	if err := t.validateInput(inputPath); err != nil {
		return "", err
	}

	outputPath := rotatedPath(inputPath)

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", "transpose=1",
		"-c:v", t.config.VideoCodec,
		"-preset", t.config.VideoPreset,
		"-c:a", t.config.AudioCodec,
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.Stdout = nil // Discard stdout
	cmd.Stderr = nil // Discard stderr (FFmpeg outputs progress to stderr)

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", fmt.Errorf("rotation cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outputPath)
		return "", fmt.Errorf("rotation produced no output for %s", filepath.Base(inputPath))
	}

	return outputPath, nil
}

// rotatedPath derives the output path for a rotated copy of inputPath.
func rotatedPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return base + "_rotated" + ext
}

// validateInput checks if the input file exists and is a regular file.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory: %s", inputPath)
	}
	return nil
}
