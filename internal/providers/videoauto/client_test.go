package videoauto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedTransport serves queued responses per POST path and fixed responses
// per GET URL, capturing every submitted form for assertions. When a POST
// queue is down to its last stub, that stub repeats, so polling loops can run
// unbounded.
type scriptedTransport struct {
	mu    sync.Mutex
	posts map[string][]responseStub
	gets  map[string]responseStub
	forms map[string][]url.Values
	calls map[string]int
}

type responseStub struct {
	status int
	mime   string
	body   []byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		posts: map[string][]responseStub{},
		gets:  map[string]responseStub{},
		forms: map[string][]url.Values{},
		calls: map[string]int{},
	}
}

func (s *scriptedTransport) queueJSON(path string, payloads ...any) {
	for _, payload := range payloads {
		body, _ := json.Marshal(payload)
		s.posts[path] = append(s.posts[path], responseStub{status: http.StatusOK, mime: "application/json", body: body})
	}
}

func (s *scriptedTransport) queueStatus(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	s.posts[path] = append(s.posts[path], responseStub{status: status, mime: "application/json", body: body})
}

func (s *scriptedTransport) serveBinary(mediaURL, mime string, data []byte) {
	s.gets[mediaURL] = responseStub{status: http.StatusOK, mime: mime, body: data}
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Method == http.MethodGet {
		if stub, ok := s.gets[req.URL.String()]; ok {
			return stub.toResponse(), nil
		}
		return responseStub{status: http.StatusNotFound, body: []byte("not found")}.toResponse(), nil
	}

	path := req.URL.Path
	s.calls[path]++
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	form, _ := url.ParseQuery(string(raw))
	s.forms[path] = append(s.forms[path], form)

	queue := s.posts[path]
	if len(queue) == 0 {
		return responseStub{status: http.StatusNotFound, body: []byte(`{"message":"no stub"}`)}.toResponse(), nil
	}
	stub := queue[0]
	if len(queue) > 1 {
		s.posts[path] = queue[1:]
	}
	return stub.toResponse(), nil
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	if s.mime != "" {
		header.Set("Content-Type", s.mime)
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}

func (s *scriptedTransport) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *scriptedTransport) lastForm(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	forms := s.forms[path]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

// newTestClient binds the client to a pathless base URL so request paths
// match the endpoint keys the transport stubs are queued under.
func newTestClient(transport *scriptedTransport) *Client {
	return NewClient(Options{
		Token:             "tok-test",
		BaseURL:           "https://api.example.test",
		HTTPClient:        &http.Client{Transport: transport},
		RetryWait:         time.Millisecond,
		ImagePollInterval: time.Millisecond,
		ImagePollTimeout:  250 * time.Millisecond,
		VideoPollInterval: time.Millisecond,
		VideoPollTimeout:  250 * time.Millisecond,
		VideoURLGrace:     20 * time.Millisecond,
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestPostJoinsBaseAndEndpoint(t *testing.T) {
	var gotURL string
	client := NewClient(Options{
		Token: "tok-test",
		// Base URLs carry a path segment in production, so the join must
		// preserve it.
		BaseURL: "https://api.example.test/ai/",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotURL = req.URL.String()
			return responseStub{status: http.StatusOK, mime: "application/json", body: []byte(`{}`)}.toResponse(), nil
		})},
	})

	if _, err := client.post(context.Background(), "/userInfo", nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if gotURL != "https://api.example.test/ai/userInfo" {
		t.Fatalf("request url = %q, want base joined with endpoint", gotURL)
	}
}

func TestPostInjectsCredentials(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueJSON("/userInfo", map[string]any{"credits": 10})
	client := newTestClient(transport)

	if _, err := client.post(context.Background(), "/userInfo", map[string]any{"scope": "all"}); err != nil {
		t.Fatalf("post: %v", err)
	}
	form := transport.lastForm("/userInfo")
	if got := form.Get("access_token"); got != "tok-test" {
		t.Fatalf("access_token = %q, want tok-test", got)
	}
	if got := form.Get("domain"); got != "aivideoauto.com" {
		t.Fatalf("domain = %q, want aivideoauto.com", got)
	}
	if got := form.Get("scope"); got != "all" {
		t.Fatalf("scope = %q, want all", got)
	}
}

func TestPostRetriesOverloadThenSucceeds(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueStatus("/generateImage", http.StatusServiceUnavailable, map[string]any{"message": "hệ thống đang quá tải, vui lòng thử lại"})
	transport.queueStatus("/generateImage", http.StatusServiceUnavailable, map[string]any{"message": "model is overloaded"})
	transport.queueJSON("/generateImage", map[string]any{"imageInfo": map[string]any{"id_base": "job-1"}})
	client := newTestClient(transport)

	resp, err := client.post(context.Background(), "/generateImage", map[string]any{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected decoded response")
	}
	if calls := transport.callCount("/generateImage"); calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPostGivesUpAfterThreeOverloads(t *testing.T) {
	transport := newScriptedTransport()
	for i := 0; i < 3; i++ {
		transport.queueStatus("/generateImage", http.StatusServiceUnavailable, map[string]any{"message": "hệ thống đang quá tải"})
	}
	client := newTestClient(transport)

	_, err := client.post(context.Background(), "/generateImage", map[string]any{})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls := transport.callCount("/generateImage"); calls != 3 {
		t.Fatalf("calls = %d, want exactly 3", calls)
	}
	if !isOverloaded(err.Error()) {
		t.Fatalf("error = %q, want overload message", err)
	}
}

func TestPostPolicyViolationIsNotRetried(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueStatus("/generateImage", http.StatusBadRequest, map[string]any{"message": "Nội dung của bạn vi phạm chính sách"})
	client := newTestClient(transport)

	_, err := client.post(context.Background(), "/generateImage", map[string]any{})
	var policyErr *PolicyViolationError
	if !errors.As(err, &policyErr) {
		t.Fatalf("error = %v, want PolicyViolationError", err)
	}
	if calls := transport.callCount("/generateImage"); calls != 1 {
		t.Fatalf("calls = %d, want exactly 1", calls)
	}
}

func TestPostAuthFailureAborts(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueStatus("/userInfo", http.StatusUnauthorized, map[string]any{"message": "bad token"})
	client := newTestClient(transport)

	_, err := client.post(context.Background(), "/userInfo", map[string]any{})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if calls := transport.callCount("/userInfo"); calls != 1 {
		t.Fatalf("calls = %d, want exactly 1", calls)
	}
	if authErr.Message != authFailureMessage {
		t.Fatalf("message = %q, want %q", authErr.Message, authFailureMessage)
	}
}

func TestPostCanceledContextStopsRetry(t *testing.T) {
	transport := newScriptedTransport()
	transport.queueStatus("/generateImage", http.StatusServiceUnavailable, map[string]any{"message": "hệ thống đang quá tải"})
	client := NewClient(Options{
		Token:      "tok-test",
		BaseURL:    "https://api.example.test",
		HTTPClient: &http.Client{Transport: transport},
		RetryWait:  time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.post(ctx, "/generateImage", map[string]any{})
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry wait ignored context cancellation")
	}
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want any
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace", raw: "  \n ", want: nil},
		{name: "bare string", raw: "plain failure text", want: "plain failure text"},
		{name: "json object", raw: `{"status":"ok"}`, want: map[string]any{"status": "ok"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := decodeBody([]byte(tc.raw))
			switch want := tc.want.(type) {
			case nil:
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
			case string:
				if got != want {
					t.Fatalf("got %v, want %q", got, want)
				}
			case map[string]any:
				obj, ok := got.(map[string]any)
				if !ok || obj["status"] != want["status"] {
					t.Fatalf("got %v, want %v", got, want)
				}
			}
		})
	}
}

func TestHTTPErrorMessageFallsBackToLocalized(t *testing.T) {
	msg := httpErrorMessage(http.StatusBadGateway, "not an object")
	if !strings.HasPrefix(msg, "Lỗi API: 502") {
		t.Fatalf("message = %q, want localized fallback", msg)
	}
}
