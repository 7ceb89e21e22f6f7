package videoauto

import (
	"encoding/json"
	"strings"
)

// Marker strings the remote API embeds in failure messages. The Vietnamese
// phrases are the canonical ones; "overloaded" appears on the English surface.
const (
	policyMarker     = "vi phạm chính sách"
	overloadMarkerVI = "hệ thống đang quá tải"
	overloadMarkerEN = "overloaded"
)

const (
	emptyResponseMessage   = "API returned an empty response."
	invalidResultMessage   = "API không trả về ảnh đã chỉnh sửa hợp lệ."
	missingFailureMessage  = "Image generation failed on the server without a specific error message. Please try a different prompt or model."
	authFailureMessage     = "Authentication error: Invalid API token provided."
	retriesExhaustedErrMsg = "API request failed after all retries."
)

// PolicyViolationError reports a content-safety rejection of a prompt or
// reference image. It is never retried.
type PolicyViolationError struct {
	Message string
}

func (e *PolicyViolationError) Error() string { return e.Message }

// AuthError reports an invalid or expired generation API token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// TimeoutError reports a bounded wait that elapsed without a terminal state.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

func isPolicyViolation(msg string) bool {
	return strings.Contains(msg, policyMarker)
}

func isOverloaded(msg string) bool {
	return strings.Contains(msg, overloadMarkerVI) || strings.Contains(msg, overloadMarkerEN)
}

// errorMessage extracts a human-readable message from an arbitrary response
// shape. It never fails and always returns a non-empty string.
func errorMessage(raw any) string {
	if raw == nil {
		return emptyResponseMessage
	}
	if s, ok := raw.(string); ok {
		return s
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		if serialized := serialize(raw); serialized != "" {
			return "Unrecognized API error format: " + serialized
		}
		return invalidResultMessage
	}
	for _, key := range []string{"message", "error", "msg"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if info, ok := obj["imageInfo"].(map[string]any); ok {
		if !hasImageURL(info) && !hasImageID(info) {
			return missingFailureMessage
		}
	}
	if len(obj) > 0 {
		if serialized := serialize(obj); serialized != "" && serialized != "{}" {
			return "Unrecognized API error format: " + serialized
		}
	}
	return invalidResultMessage
}

func serialize(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func hasImageURL(info map[string]any) bool {
	for _, key := range []string{"url", "url_preview"} {
		if s, ok := info[key].(string); ok && s != "" {
			return true
		}
	}
	if images, ok := info["images"].([]any); ok && len(images) > 0 {
		if first, ok := images[0].(map[string]any); ok {
			if s, ok := first["url"].(string); ok && s != "" {
				return true
			}
		}
	}
	return false
}

func hasImageID(info map[string]any) bool {
	for _, key := range []string{"id_base", "task_id", "imageId", "id"} {
		if v, ok := info[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return true
		}
	}
	return false
}
