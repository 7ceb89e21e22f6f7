package videoauto

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard/internal/domain"
)

// negativePrompt suppresses text, watermarks and UI overlays on every
// generated keyframe.
const negativePrompt = "subtitles, text, words, letters, captions, watermark, signature, labels, typography, writing, logo, credits, title, branding, user interface elements, overlays"

// ImageRequest describes one image generation job.
type ImageRequest struct {
	Prompt      string
	Model       string
	AspectRatio domain.AspectRatio
	// EditImage is the base64 payload of an edit base image, when the job
	// reworks an existing picture.
	EditImage string
	EditMIME  string
	// References are base64 payloads of locked reference assets passed as
	// identity/style subjects.
	References []string
	OnProgress func(message string)
}

// ImageResult is a completed image generation.
type ImageResult struct {
	Data    []byte
	MIME    string
	DataURL string
	Info    domain.ImageServerInfo
	// Raw is the merged remote metadata (submission overlaid with the final
	// poll result).
	Raw map[string]any
}

func (r ImageRequest) progress(message string) {
	if r.OnProgress != nil {
		r.OnProgress(message)
	}
}

// GenerateImage submits an image job and waits for its result. Responses that
// already carry a resolvable URL return synchronously; everything else is
// polled until success, failure or timeout.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, errors.New("An AI model must be selected for image generation.")
	}

	body := map[string]any{
		"action_type":     "create",
		"model":           model,
		"prompt":          req.Prompt,
		"negative_prompt": negativePrompt,
		"project_id":      "default",
		"ratio":           req.AspectRatio.RatioToken(),
	}
	// The nano model family accepts neither edit bases nor reference subjects.
	isNano := strings.Contains(strings.ToLower(model), "nano")
	if !isNano && req.EditImage != "" {
		body["editImage"] = "true"
		body["base64Image"] = req.EditImage
	}
	if !isNano && len(req.References) > 0 {
		subjects := make([]map[string]string, 0, len(req.References))
		for _, ref := range req.References {
			if ref == "" {
				continue
			}
			subjects = append(subjects, map[string]string{"data": ref})
		}
		if len(subjects) > 0 {
			body["subjects"] = subjects
		}
	}

	resp, err := c.post(ctx, "/generateImage", body)
	if err != nil {
		return nil, err
	}

	submission := parseImageSubmission(resp)
	switch submission.Kind {
	case kindURL:
		info := mergeInfo(submission.Info)
		info["id_base"] = imageIDBaseOf(submission.Info)
		info["url"] = submission.URL
		return c.downloadResult(ctx, req, submission.URL, info)
	case kindPollingID:
		final, err := c.pollImage(ctx, req, submission.PollingID)
		if err != nil {
			return nil, err
		}
		if err := finalizePoll(final); err != nil {
			return nil, err
		}
		merged := mergeInfo(submission.Info, final.Info)
		req.progress("Downloading generated image...")
		return c.downloadResult(ctx, req, final.URL, merged)
	default:
		if isPolicyViolation(submission.Message) {
			return nil, &PolicyViolationError{Message: submission.Message}
		}
		return nil, errors.New(submission.Message)
	}
}

func (c *Client) downloadResult(ctx context.Context, req ImageRequest, url string, info map[string]any) (*ImageResult, error) {
	data, mime, err := c.download(ctx, url)
	if err != nil {
		return nil, errors.New("Could not download the generated image.")
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	result := &ImageResult{
		Data:    data,
		MIME:    mime,
		DataURL: fmt.Sprintf("data:%s;base64,%s", mime, encoded),
		Info: domain.ImageServerInfo{
			IDBase: imageIDBaseOf(info),
			URL:    url,
		},
		Raw: info,
	}
	c.logger.Debug().Str("id_base", result.Info.IDBase).Str("url", url).Msg("videoauto: image asset ready")
	return result, nil
}

// mapImageStatus folds the remote status vocabulary onto the normalized job
// lifecycle.
func mapImageStatus(status string) domain.JobStatus {
	switch strings.ToUpper(status) {
	case "MEDIA_GENERATION_STATUS_SUCCESSFUL", "SUCCESSFUL", "SUCCESS":
		return domain.JobSuccessful
	case "MEDIA_GENERATION_STATUS_FAILED", "FAILED":
		return domain.JobFailed
	case "MEDIA_GENERATION_STATUS_PENDING", "PENDING_ACTIVE":
		return domain.JobPending
	case "MEDIA_GENERATION_STATUS_ACTIVE":
		return domain.JobActive
	case "MEDIA_GENERATION_STATUS_PROCESSING", "PROCESSING":
		return domain.JobProcessing
	default:
		return domain.JobUnknown
	}
}

func (c *Client) pollImage(ctx context.Context, req ImageRequest, pollingID string) (payload, error) {
	job := domain.GenerationJob{PollingID: pollingID, Status: domain.JobPending}
	deadline := time.Now().Add(c.imagePollTimeout)
	req.progress("Image request sent. Waiting for processing to start...")

	for time.Now().Before(deadline) {
		if err := sleep(ctx, c.imagePollInterval); err != nil {
			return payload{}, err
		}
		req.progress("Checking image status...")
		status, err := c.checkImageStatus(ctx, pollingID)
		if err != nil {
			return payload{}, err
		}
		job.Status = mapImageStatus(status.Status)
		switch job.Status {
		case domain.JobSuccessful:
			job.ResultURL = status.URL
			return status, nil
		case domain.JobFailed:
			failure := status.Message
			if failure == "" {
				failure = "Image generation failed during processing."
			}
			job.FailureMessage = failure
			if isPolicyViolation(failure) {
				return payload{}, &PolicyViolationError{Message: failure}
			}
			return payload{}, errors.New(failure)
		case domain.JobPending, domain.JobActive, domain.JobProcessing:
			req.progress("Image is currently being generated...")
		default:
			// An unknown status that still carries a URL is treated as
			// success. The video poller treats the same case as a hard
			// error; the asymmetry matches observed API behavior and is
			// kept deliberately.
			if status.URL != "" {
				job.Status = domain.JobSuccessful
				job.ResultURL = status.URL
				return status, nil
			}
			label := status.Status
			if label == "" {
				label = "N/A"
			}
			return payload{}, fmt.Errorf("Unknown image status: %s", label)
		}
	}
	return payload{}, &TimeoutError{Message: "Image generation timed out after 2 minutes."}
}

func (c *Client) checkImageStatus(ctx context.Context, pollingID string) (payload, error) {
	resp, err := c.post(ctx, "/image", map[string]any{"imageId": pollingID})
	if err != nil {
		return payload{}, err
	}
	status := parseImageStatus(resp)
	if status.Kind == kindStatus {
		return status, nil
	}
	if isPolicyViolation(status.Message) {
		return payload{}, &PolicyViolationError{Message: status.Message}
	}
	if status.Message == invalidResultMessage {
		return payload{}, errors.New("Không thể kiểm tra trạng thái ảnh: Phản hồi không hợp lệ.")
	}
	return payload{}, errors.New(status.Message)
}

// finalizePoll validates the terminal payload of an image poll.
func finalizePoll(final payload) error {
	if final.URL == "" {
		return errors.New("Image generation finished but no URL was provided.")
	}
	return nil
}
