// Package daily is a minimal Daily REST client for the pieces the voice
// agents need: meeting tokens and room lookups.
package daily

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.daily.co/v1"

// Sentinel errors for the interesting REST failures.
var (
	ErrUnauthorized = fmt.Errorf("daily: invalid api key")
	ErrRoomNotFound = fmt.Errorf("daily: room not found")
	ErrBadRequest   = fmt.Errorf("daily: bad request")
)

// Config configures the Daily client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Daily REST API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a Daily client. Retries cover connection errors, 429,
// and 5xx.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("daily api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{
		http:   http,
		logger: logger.With(zap.String("component", "transport.daily")),
	}, nil
}

// TokenProperties shape a meeting token request.
type TokenProperties struct {
	RoomName string `json:"room_name"`
	IsOwner  bool   `json:"is_owner,omitempty"`
	UserName string `json:"user_name,omitempty"`
	// EnableRecording is the Daily recording mode, e.g. "cloud". Empty
	// leaves recording off.
	EnableRecording string `json:"enable_recording,omitempty"`
	StartAudioOff   bool   `json:"start_audio_off,omitempty"`
	StartVideoOff   bool   `json:"start_video_off,omitempty"`
	// Exp is a unix expiry timestamp. Zero lets the API pick its default.
	Exp int64 `json:"exp,omitempty"`
}

type tokenRequest struct {
	Properties TokenProperties `json:"properties"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// CreateMeetingToken mints a meeting token for a room.
func (c *Client) CreateMeetingToken(ctx context.Context, props TokenProperties) (string, error) {
	if props.RoomName == "" {
		return "", fmt.Errorf("%w: room name is required", ErrBadRequest)
	}

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(tokenRequest{Properties: props}).
		SetResult(&out).
		Post("/meeting-tokens")
	if err != nil {
		return "", fmt.Errorf("daily: token request failed: %w", err)
	}
	if err := statusError(resp); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("daily: empty token in response")
	}

	c.logger.Info("meeting token created", zap.String("room", props.RoomName))
	return out.Token, nil
}

// Room is the subset of a Daily room the diagnostics and CLI use.
type Room struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Privacy   string `json:"privacy"`
	CreatedAt string `json:"created_at"`
}

// GetRoom fetches a room by name.
func (c *Client) GetRoom(ctx context.Context, name string) (*Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrBadRequest)
	}

	var out Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/rooms/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("daily: room lookup failed: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoomNameFromURL extracts the room name from a Daily room URL like
// https://yourdomain.daily.co/room-name.
func RoomNameFromURL(roomURL string) (string, error) {
	u, err := url.Parse(roomURL)
	if err != nil {
		return "", fmt.Errorf("daily: invalid room url: %w", err)
	}
	name := strings.Trim(u.Path, "/")
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("daily: cannot extract room name from %q", roomURL)
	}
	return name, nil
}

func statusError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(string(resp.Body()))
	switch resp.StatusCode() {
	case 400:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case 404:
		return fmt.Errorf("%w: %s", ErrRoomNotFound, body)
	default:
		return fmt.Errorf("daily: unexpected status %d: %s", resp.StatusCode(), body)
	}
}
