package videoauto

import "strings"

// The remote API returns inconsistent JSON shapes across endpoints and
// versions. Every response is normalized into a payload with an explicit
// kind, so call sites handle a closed set of cases instead of chained field
// probing.

type payloadKind int

const (
	kindUnrecognized payloadKind = iota
	kindURL
	kindPollingID
	kindStatus
)

type payload struct {
	Kind      payloadKind
	URL       string
	PollingID string
	Status    string
	Message   string
	// Info carries the object the fields were found on, for metadata merging.
	Info map[string]any
}

// unwrap peels the data envelopes the API wraps results in: `data[0]`,
// `data.data[0]`, or the response itself.
func unwrap(resp any) map[string]any {
	obj, ok := resp.(map[string]any)
	if !ok {
		return nil
	}
	if arr, ok := obj["data"].([]any); ok && len(arr) > 0 {
		if first, ok := arr[0].(map[string]any); ok {
			return first
		}
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		if arr, ok := inner["data"].([]any); ok && len(arr) > 0 {
			if first, ok := arr[0].(map[string]any); ok {
				return first
			}
		}
	}
	return obj
}

func imageInfoOf(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	if info, ok := obj["imageInfo"].(map[string]any); ok {
		return info
	}
	return obj
}

func firstString(obj map[string]any, keys ...string) string {
	if obj == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// imageURLOf resolves the image URL on an info object, including the nested
// images[0].url variant.
func imageURLOf(info map[string]any) string {
	if url := firstString(info, "url"); url != "" {
		return url
	}
	if images, ok := info["images"].([]any); ok && len(images) > 0 {
		if first, ok := images[0].(map[string]any); ok {
			return firstString(first, "url")
		}
	}
	return ""
}

// imageIDBaseOf resolves the server-side base identifier, including the
// nested images[0].id_base variant returned by the synchronous fast path.
func imageIDBaseOf(info map[string]any) string {
	if id := firstString(info, "id_base"); id != "" {
		return id
	}
	if images, ok := info["images"].([]any); ok && len(images) > 0 {
		if first, ok := images[0].(map[string]any); ok {
			return firstString(first, "id_base")
		}
	}
	return ""
}

var pollingIDKeys = []string{"id_base", "task_id", "imageId", "id"}

// parseImageSubmission classifies the response to an image creation call.
func parseImageSubmission(resp any) payload {
	obj := unwrap(resp)
	info := imageInfoOf(obj)
	if url := imageURLOf(info); url != "" {
		return payload{Kind: kindURL, URL: url, Info: info}
	}
	top, _ := resp.(map[string]any)
	for _, candidate := range []map[string]any{info, obj, top} {
		if id := firstString(candidate, pollingIDKeys...); id != "" {
			return payload{Kind: kindPollingID, PollingID: id, Info: info}
		}
	}
	return payload{Kind: kindUnrecognized, Message: errorMessage(resp), Info: info}
}

// parseImageStatus classifies an image status-check response.
func parseImageStatus(resp any) payload {
	obj, _ := resp.(map[string]any)
	if arr, ok := obj["data"].([]any); ok && len(arr) > 0 {
		if first, ok := arr[0].(map[string]any); ok {
			return statusPayload(first)
		}
	}
	if info, ok := obj["imageInfo"].(map[string]any); ok {
		if firstString(info, "status") != "" {
			return statusPayload(info)
		}
	}
	if firstString(obj, "status") != "" {
		return statusPayload(obj)
	}
	// An empty data array or a bare runtime envelope means the job has not
	// been registered yet; treat it as still processing.
	if arr, ok := obj["data"].([]any); ok && len(arr) == 0 {
		return payload{Kind: kindStatus, Status: "PROCESSING"}
	}
	if len(obj) == 0 {
		return payload{Kind: kindStatus, Status: "PROCESSING"}
	}
	if len(obj) == 1 {
		if _, ok := obj["runtime"]; ok {
			return payload{Kind: kindStatus, Status: "PROCESSING"}
		}
	}
	return payload{Kind: kindUnrecognized, Message: errorMessage(resp)}
}

func statusPayload(obj map[string]any) payload {
	return payload{
		Kind:    kindStatus,
		Status:  strings.ToUpper(firstString(obj, "status")),
		URL:     imageURLOf(obj),
		Message: firstString(obj, "message"),
		Info:    obj,
	}
}

// parseVideoSubmission extracts the job identifier from a video creation
// response.
func parseVideoSubmission(resp any) payload {
	obj, _ := resp.(map[string]any)
	if info, ok := obj["videoInfo"].(map[string]any); ok {
		if id := firstString(info, "id_base"); id != "" {
			return payload{Kind: kindPollingID, PollingID: id, Info: info}
		}
	}
	return payload{Kind: kindUnrecognized, Message: errorMessage(resp)}
}

// parseVideoStatus classifies a video status-check response.
func parseVideoStatus(resp any) payload {
	obj, _ := resp.(map[string]any)
	if info, ok := obj["videoInfo"].(map[string]any); ok {
		if firstString(info, "status") != "" {
			return videoStatusPayload(info)
		}
	}
	if firstString(obj, "status") != "" {
		return videoStatusPayload(obj)
	}
	return payload{Kind: kindUnrecognized, Message: errorMessage(resp)}
}

func videoStatusPayload(obj map[string]any) payload {
	return payload{
		Kind:    kindStatus,
		Status:  firstString(obj, "status"),
		URL:     firstString(obj, "download_url"),
		Message: firstString(obj, "message"),
		Info:    obj,
	}
}

// mergeInfo overlays later metadata on top of earlier metadata.
func mergeInfo(maps ...map[string]any) map[string]any {
	merged := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
