package videoauto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyboard/internal/domain"
)

// VideoRequest animates a generated keyframe into a clip.
type VideoRequest struct {
	Prompt     string
	Model      string
	Image      domain.ImageServerInfo
	OnProgress func(message string)
}

func (r VideoRequest) progress(message string) {
	if r.OnProgress != nil {
		r.OnProgress(message)
	}
}

// GenerateVideo submits a video job for a scene keyframe and polls until the
// download URL is available. A terminal success status without a URL is
// tolerated for a bounded grace window, since the API reports success slightly
// before the asset is uploaded.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if !req.Image.Valid() {
		return "", errors.New("Cannot generate video: The scene is missing keyframe image information.")
	}

	req.progress("Submitting video generation request...")
	pollingID, err := c.submitVideo(ctx, req)
	if err != nil {
		return "", err
	}

	job := domain.GenerationJob{PollingID: pollingID, Status: domain.JobPending}
	deadline := time.Now().Add(c.videoPollTimeout)
	req.progress("Video request sent. Waiting for processing to start...")

	var successSince time.Time
	for time.Now().Before(deadline) {
		if err := sleep(ctx, c.videoPollInterval); err != nil {
			return "", err
		}
		req.progress("Checking video status...")
		status, err := c.checkVideoStatus(ctx, pollingID)
		if err != nil {
			return "", err
		}

		// The video endpoint speaks only the long-form status vocabulary,
		// matched exactly. Unknown statuses are hard errors here, with no
		// URL rescue like the image poller has.
		switch status.Status {
		case "MEDIA_GENERATION_STATUS_SUCCESSFUL":
			if status.URL != "" {
				job.Status = domain.JobSuccessful
				job.ResultURL = status.URL
				req.progress("Video generated successfully!")
				return status.URL, nil
			}
			if successSince.IsZero() {
				successSince = time.Now()
				req.progress("Video processing finished. Waiting for download URL...")
			}
			if time.Since(successSince) > c.videoURLGrace {
				return "", errors.New("Video generation succeeded, but the download URL was not provided in time.")
			}
		case "MEDIA_GENERATION_STATUS_FAILED":
			failure := status.Message
			if failure == "" {
				failure = "Video generation failed during processing."
			}
			job.Status = domain.JobFailed
			job.FailureMessage = failure
			return "", errors.New(failure)
		case "MEDIA_GENERATION_STATUS_PENDING", "MEDIA_GENERATION_STATUS_ACTIVE", "MEDIA_GENERATION_STATUS_PROCESSING":
			req.progress("Video is currently being generated...")
		default:
			label := status.Status
			if label == "" {
				label = "N/A"
			}
			return "", fmt.Errorf("Unknown video status: %s", label)
		}
	}
	return "", &TimeoutError{Message: "Video generation timed out after 10 minutes."}
}

func (c *Client) submitVideo(ctx context.Context, req VideoRequest) (string, error) {
	body := map[string]any{
		"model":           req.Model,
		"privacy":         "PRIVATE",
		"prompt":          req.Prompt,
		"translate_to_en": "true",
		"images": []map[string]string{{
			"id_base": req.Image.IDBase,
			"url":     req.Image.URL,
		}},
	}
	resp, err := c.post(ctx, "/create-video", body)
	if err != nil {
		return "", err
	}
	submission := parseVideoSubmission(resp)
	if submission.Kind != kindPollingID {
		obj, _ := resp.(map[string]any)
		if msg := firstString(obj, "message"); msg != "" {
			return "", errors.New(msg)
		}
		return "", errors.New("Could not submit video generation request.")
	}
	c.logger.Debug().Str("id_base", submission.PollingID).Msg("videoauto: video job submitted")
	return submission.PollingID, nil
}

func (c *Client) checkVideoStatus(ctx context.Context, pollingID string) (payload, error) {
	resp, err := c.post(ctx, "/video", map[string]any{"videoId": pollingID})
	if err != nil {
		return payload{}, err
	}
	status := parseVideoStatus(resp)
	if status.Kind != kindStatus {
		obj, _ := resp.(map[string]any)
		if msg := firstString(obj, "message"); msg != "" {
			return payload{}, errors.New(msg)
		}
		return payload{}, errors.New("Could not check video status: Invalid response.")
	}
	return status, nil
}
