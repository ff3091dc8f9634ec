// Package youtube implements the hosting-platform boundary against the
// YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/vidgate/vidgate/internal/domain/repository"
)

// ClientConfig holds configuration for the YouTube client.
type ClientConfig struct {
	// SegmentSize is the resumable-upload segment size in bytes.
	// Default: 10 MiB.
	SegmentSize int
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SegmentSize: 10 * 1024 * 1024,
	}
}

// Client implements repository.Platform using the YouTube Data API.
type Client struct {
	svc         *youtube.Service
	segmentSize int
}

// Compile-time verification that Client implements repository.Platform.
var _ repository.Platform = (*Client)(nil)

// NewClient creates a YouTube client authenticated by the given token
// source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, cfg ClientConfig) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	segmentSize := cfg.SegmentSize
	if segmentSize <= 0 {
		segmentSize = DefaultClientConfig().SegmentSize
	}

	return &Client{
		svc:         svc,
		segmentSize: segmentSize,
	}, nil
}

// Upload feeds the file to YouTube as a resumable upload in fixed-size
// segments and returns the platform video id.
func (c *Client) Upload(ctx context.Context, req repository.PublishRequest, progress func(fraction float64)) (string, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", req.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", req.Path, err)
	}
	totalSize := info.Size()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  req.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           string(req.Privacy),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	call := c.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ChunkSize(c.segmentSize)).
		ProgressUpdater(func(current, total int64) {
			if progress == nil {
				return
			}
			size := total
			if size <= 0 {
				size = totalSize
			}
			if size > 0 {
				progress(float64(current) / float64(size))
			}
		})

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("resumable insert: %w", err)
	}
	return resp.Id, nil
}

// RejectionReason reports why YouTube declined the video, or "" when it
// was accepted.
func (c *Client) RejectionReason(ctx context.Context, externalID string) (string, error) {
	resp, err := c.svc.Videos.List([]string{"status"}).Id(externalID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("video status lookup: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Status == nil {
		return "", nil
	}
	return resp.Items[0].Status.RejectionReason, nil
}

// ProcessingSucceeded reports whether YouTube-side processing finished.
func (c *Client) ProcessingSucceeded(ctx context.Context, externalID string) (bool, error) {
	resp, err := c.svc.Videos.List([]string{"status", "processingDetails"}).Id(externalID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("processing status lookup: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ProcessingDetails == nil {
		return false, nil
	}
	return resp.Items[0].ProcessingDetails.ProcessingStatus == "succeeded", nil
}

// WatchURL builds the public watch URL for a published video.
func WatchURL(externalID string) string {
	return "https://youtu.be/" + externalID
}
