package transcoder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultFFmpegConfig(t *testing.T) {
	cfg := DefaultFFmpegConfig()

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"FFmpegPath", cfg.FFmpegPath, "ffmpeg"},
		{"FFprobePath", cfg.FFprobePath, "ffprobe"},
		{"VideoCodec", cfg.VideoCodec, "libx264"},
		{"VideoPreset", cfg.VideoPreset, "fast"},
		{"AudioCodec", cfg.AudioCodec, "copy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFFmpegTranscoder_ValidateInput(t *testing.T) {
	transcoder := NewFFmpegTranscoder(DefaultFFmpegConfig())

	t.Run("non-existent file returns error", func(t *testing.T) {
		err := transcoder.validateInput("/non/existent/file.mp4")
		if err == nil {
			t.Error("expected error for non-existent file")
		}
	})

	t.Run("directory returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		err := transcoder.validateInput(tmpDir)
		if err == nil {
			t.Error("expected error when input is a directory")
		}
	})

	t.Run("existing file succeeds", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "test.mp4")
		if err := os.WriteFile(tmpFile, []byte("dummy"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		err := transcoder.validateInput(tmpFile)
		if err != nil {
			t.Errorf("unexpected error for existing file: %v", err)
		}
	})
}

func TestRotationSwapsAxes(t *testing.T) {
	tests := []struct {
		name     string
		stream   probeStream
		expected bool
	}{
		{
			name:     "no rotation metadata",
			stream:   probeStream{Width: 1920, Height: 1080},
			expected: false,
		},
		{
			name: "side data rotation -90",
			stream: probeStream{
				SideData: []struct {
					Rotation int `json:"rotation"`
				}{{Rotation: -90}},
			},
			expected: true,
		},
		{
			name: "side data rotation 180",
			stream: probeStream{
				SideData: []struct {
					Rotation int `json:"rotation"`
				}{{Rotation: 180}},
			},
			expected: false,
		},
		{
			name: "legacy rotate tag 90",
			stream: func() probeStream {
				s := probeStream{}
				s.Tags.Rotate = "90"
				return s
			}(),
			expected: true,
		},
		{
			name: "legacy rotate tag 0",
			stream: func() probeStream {
				s := probeStream{}
				s.Tags.Rotate = "0"
				return s
			}(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rotationSwapsAxes(tt.stream); got != tt.expected {
				t.Errorf("got %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestRotatedPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"mp4 extension", "/videos/clip.mp4", "/videos/clip_rotated.mp4"},
		{"no extension", "/videos/clip", "/videos/clip_rotated"},
		{"dotted name", "/videos/a.b.mov", "/videos/a.b_rotated.mov"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rotatedPath(tt.input); got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
		})
	}
}
