package videoauto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.gommo.net/ai"
	defaultDomain  = "aivideoauto.com"

	maxAttempts      = 3
	defaultRetryWait = 3 * time.Second

	defaultImagePollInterval = 5 * time.Second
	defaultImagePollTimeout  = 2 * time.Minute
	defaultVideoPollInterval = 10 * time.Second
	defaultVideoPollTimeout  = 10 * time.Minute
	defaultVideoURLGrace     = time.Minute
)

// Options configures the generation API client. The access token is threaded
// in explicitly; the client never reads ambient credential state.
type Options struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger

	// Retry/polling knobs, exposed so tests can shrink them.
	RetryWait         time.Duration
	ImagePollInterval time.Duration
	ImagePollTimeout  time.Duration
	VideoPollInterval time.Duration
	VideoPollTimeout  time.Duration
	VideoURLGrace     time.Duration
}

// Client performs authenticated form-encoded calls against the AIVideoAuto
// generation API. It holds no mutable state and is safe for concurrent use
// across independent jobs.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	retryWait         time.Duration
	imagePollInterval time.Duration
	imagePollTimeout  time.Duration
	videoPollInterval time.Duration
	videoPollTimeout  time.Duration
	videoURLGrace     time.Duration
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		token:             strings.TrimSpace(opts.Token),
		baseURL:           baseURL,
		httpClient:        httpClient,
		logger:            logger,
		retryWait:         durationOr(opts.RetryWait, defaultRetryWait),
		imagePollInterval: durationOr(opts.ImagePollInterval, defaultImagePollInterval),
		imagePollTimeout:  durationOr(opts.ImagePollTimeout, defaultImagePollTimeout),
		videoPollInterval: durationOr(opts.VideoPollInterval, defaultVideoPollInterval),
		videoPollTimeout:  durationOr(opts.VideoPollTimeout, defaultVideoPollTimeout),
		videoURLGrace:     durationOr(opts.VideoURLGrace, defaultVideoURLGrace),
	}
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.token != ""
}

// post issues a form-encoded POST, injecting the access token and domain tag
// into every payload. Overload failures are retried up to maxAttempts total
// with a fixed backoff; policy violations and authentication failures abort
// immediately.
func (c *Client) post(ctx context.Context, endpoint string, body map[string]any) (any, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		decoded, err := c.postOnce(ctx, endpoint, body)
		if err == nil {
			return decoded, nil
		}
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		msg := err.Error()
		if isPolicyViolation(msg) {
			return nil, &PolicyViolationError{Message: msg}
		}
		if isOverloaded(msg) && attempt < maxAttempts {
			c.logger.Warn().Msgf("videoauto: overloaded, retrying in %s (attempt %d/%d)", c.retryWait, attempt, maxAttempts)
			if waitErr := sleep(ctx, c.retryWait); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		return nil, err
	}
	return nil, errors.New(retriesExhaustedErrMsg)
}

func (c *Client) postOnce(ctx context.Context, endpoint string, body map[string]any) (any, error) {
	values := url.Values{}
	values.Set("access_token", c.token)
	values.Set("domain", defaultDomain)
	for key, value := range body {
		switch v := value.(type) {
		case string:
			values.Set(key, v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("videoauto: encode field %s: %w", key, err)
			}
			values.Set(key, string(raw))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("videoauto: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("videoauto: read response: %w", err)
	}
	decoded := decodeBody(raw)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Message: authFailureMessage}
	}
	if resp.StatusCode >= 300 {
		return nil, errors.New(httpErrorMessage(resp.StatusCode, decoded))
	}
	return decoded, nil
}

// decodeBody tolerates the API's loose response discipline: valid JSON of any
// shape, a bare string body, or nothing at all.
func decodeBody(raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return trimmed
	}
	return decoded
}

func httpErrorMessage(status int, body any) string {
	if obj, ok := body.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return msg
		}
		if errObj, ok := obj["error"].(map[string]any); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("Lỗi API: %d %s", status, http.StatusText(status))
}

// sleep waits for the given duration, returning early when the context ends.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// download fetches generated media bytes from their remote URL.
func (c *Client) download(ctx context.Context, mediaURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(mediaURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("videoauto: invalid media url: %s", mediaURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("videoauto: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("videoauto: download media: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("videoauto: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("videoauto: read media: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}
