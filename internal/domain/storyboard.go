package domain

import (
	"strings"
	"time"
)

// Language selects the output language for LLM-backed operations.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageVietnamese Language = "vi"
)

// Instruction returns the language name used inside LLM prompts.
func (l Language) Instruction() string {
	if l == LanguageVietnamese {
		return "Vietnamese"
	}
	return "English"
}

// NormalizeLanguage maps arbitrary locale strings onto the two supported languages.
func NormalizeLanguage(locale string) Language {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "vi") {
		return LanguageVietnamese
	}
	return LanguageEnglish
}

// AspectRatio is the creative aspect ratio requested for scene images.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// RatioToken converts the aspect ratio to the generation API's token form.
func (a AspectRatio) RatioToken() string {
	return strings.ReplaceAll(string(a), ":", "_")
}

// Scenario is the creative template governing storyboard suggestions.
type Scenario string

const (
	ScenarioReview Scenario = "review"
	ScenarioVlog   Scenario = "vlog"
	ScenarioUGC    Scenario = "ugc"
)

// AssetType classifies an uploaded reference image.
type AssetType string

const (
	AssetProduct   AssetType = "product"
	AssetCharacter AssetType = "character"
	AssetOther     AssetType = "other"
)

// Asset is an uploaded reference image. Only locked assets are eligible to be
// passed as identity/style subjects into image generation.
type Asset struct {
	ID        string    `json:"asset_id"`
	Type      AssetType `json:"type"`
	DataURL   string    `json:"data_url"`
	Filename  string    `json:"filename"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

// Base64 returns the raw base64 payload of the asset's data URL, or "" when
// the URL carries no payload.
func (a Asset) Base64() string {
	if idx := strings.Index(a.DataURL, ","); idx >= 0 {
		return a.DataURL[idx+1:]
	}
	return ""
}

// ImageServerInfo is the subset of a completed image job's metadata required
// to submit a dependent video job. It is the join key between the image and
// video orchestrators.
type ImageServerInfo struct {
	IDBase string `json:"id_base"`
	URL    string `json:"url"`
}

// Valid reports whether the info can anchor a video submission.
func (i *ImageServerInfo) Valid() bool {
	return i != nil && strings.TrimSpace(i.IDBase) != "" && strings.TrimSpace(i.URL) != ""
}

// Scene is one storyboard entry.
type Scene struct {
	ID              string           `json:"id"`
	Position        int              `json:"position"`
	ImagePrompt     string           `json:"image_prompt"`
	VideoPrompt     string           `json:"video_prompt"`
	DurationSeconds int              `json:"duration_seconds"`
	ImageURL        string           `json:"image_url,omitempty"`
	ImageInfo       *ImageServerInfo `json:"image_info,omitempty"`
	VideoURL        string           `json:"video_url,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// JobStatus is the normalized lifecycle of a remote generation job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobActive     JobStatus = "ACTIVE"
	JobProcessing JobStatus = "PROCESSING"
	JobSuccessful JobStatus = "SUCCESSFUL"
	JobFailed     JobStatus = "FAILED"
	// JobUnknown is the defensive fallback for unrecognized remote shapes.
	JobUnknown JobStatus = "UNKNOWN"
)

// Terminal reports whether the status ends a polling loop.
func (s JobStatus) Terminal() bool {
	return s == JobSuccessful || s == JobFailed
}

// GenerationJob tracks a submitted image or video job across polls.
type GenerationJob struct {
	PollingID      string    `json:"polling_id"`
	Status         JobStatus `json:"status"`
	ResultURL      string    `json:"result_url,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
}

// Model is a generation model advertised by the remote API.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// AnalyzedScene is one segment of an analyzed reference video.
type AnalyzedScene struct {
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Description string  `json:"description"`
	Action      string  `json:"action"`
}

// VideoAnalysis is the structured result of multi-frame video analysis.
type VideoAnalysis struct {
	Hook          string          `json:"hook"`
	Storytelling  string          `json:"storytelling"`
	SellingPoints []string        `json:"sellingPoints"`
	Scenes        []AnalyzedScene `json:"scenes"`
}

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatUser ChatRole = "user"
	ChatAI   ChatRole = "ai"
)

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
