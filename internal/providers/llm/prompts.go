package llm

import (
	"fmt"
	"strings"

	"storyboard/internal/domain"
)

// Placeholders the prompts ask the model to weave into scene text. They are
// substituted with concrete asset references at image generation time.
const (
	characterPlaceholder = "{{CHARACTER}}"
	productPlaceholder   = "{{PRODUCT}}"
)

const defaultProductDescription = "A high-quality product."

var scenarioInstructions = map[domain.Scenario]string{
	domain.ScenarioReview: `The core creative idea is "Product Review Oriented". The storyboard should be clean, professional, and visually highlight the product's key features and benefits as described. Use a mix of close-up "hero shots" of the product and scenes showing its use. A professional voiceover should be used.`,
	domain.ScenarioVlog:   `The core creative idea is "First-Person POV Vlog Style". The entire visual style MUST be a point-of-view (POV) shot from a front-facing selfie camera on a smartphone. It should look like the character is recording themselves. The character (` + characterPlaceholder + `) is vlogging, speaking directly and authentically to the camera (the viewer), sharing their personal story and experience with the product (` + productPlaceholder + `). The dialogue should be conversational, as if they are talking to their followers. Do not show the character holding the phone; the view is FROM the phone's front-facing camera.`,
	domain.ScenarioUGC:    `The core creative idea is "UGC Review". First, analyze the product and its description to determine a suitable user persona. Then, create a storyboard that feels like this real user sharing their honest experience with the product directly to the camera. The tone should be casual and relatable.`,
}

func findAsset(assets []domain.Asset, assetType domain.AssetType) *domain.Asset {
	for i := range assets {
		if assets[i].Type == assetType {
			return &assets[i]
		}
	}
	return nil
}

// assetSummary renders the "Assets Available" fragment shared by the
// storyboard and continuation prompts.
func assetSummary(product, character *domain.Asset) string {
	sb := &strings.Builder{}
	if product != nil {
		fmt.Fprintf(sb, "Product (filename: %s)", product.Filename)
	}
	if product != nil && character != nil {
		sb.WriteString(" and ")
	}
	if character != nil {
		fmt.Fprintf(sb, "Character (filename: %s)", character.Filename)
	}
	return sb.String()
}

func orDefaultDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return defaultProductDescription
	}
	return description
}

// buildStoryboardPrompt assembles the 3-scene storyboard instruction. A
// scenario that needs a character silently degrades to the review scenario
// when no character asset is present.
func buildStoryboardPrompt(req SuggestionRequest) string {
	character := findAsset(req.Assets, domain.AssetCharacter)
	product := findAsset(req.Assets, domain.AssetProduct)
	scenario := req.Scenario
	if character == nil {
		scenario = domain.ScenarioReview
	}
	instruction, ok := scenarioInstructions[scenario]
	if !ok {
		instruction = scenarioInstructions[domain.ScenarioReview]
	}

	sb := &strings.Builder{}
	sb.WriteString("You are a creative director for social media video ads. Your task is to create a 3-scene storyboard for a short video about a specific product.\n")
	sb.WriteString(`You MUST respond with a valid JSON object that adheres to the specified structure, containing a single key "scenes" which is an array of scene objects.` + "\n")
	sb.WriteString(`Each scene object must have "scene_number", "imagePrompt", and "videoPrompt".` + "\n")
	fmt.Fprintf(sb, "**Core Creative Idea (Scenario):** %s\n", instruction)
	fmt.Fprintf(sb, "**Product Description:** %s\n", orDefaultDescription(req.ProductDescription))
	fmt.Fprintf(sb, "**Assets Available:** %s.\n", assetSummary(product, character))
	fmt.Fprintf(sb, "**Language:** All output text MUST be in %s.\n\n", req.Language.Instruction())
	sb.WriteString("For each scene, provide two distinct prompts:\n")
	sb.WriteString("1.  **imagePrompt:** A detailed, purely visual description of the scene. Focus on composition, lighting, character appearance, and environment. DO NOT include dialogue or actions.\n")
	sb.WriteString(`2.  **videoPrompt:** A description of the action, camera movement, and any character dialogue (in quotes "") or voiceover (in parentheses ()). This will be used for video animation and audio.` + "\n\n")
	sb.WriteString("If the scenario requires a character, make sure the character's role is logically consistent with the product.\n")
	sb.WriteString("Ensure the story is coherent, follows the Core Creative Idea, and the prompts are creative and engaging.\n")
	fmt.Fprintf(sb, "Use the placeholders %s and %s where appropriate in the prompts.", characterPlaceholder, productPlaceholder)
	return sb.String()
}

// buildNextScenePrompt assembles the single-scene continuation instruction.
func buildNextScenePrompt(req NextSceneRequest) string {
	character := findAsset(req.Assets, domain.AssetCharacter)
	product := findAsset(req.Assets, domain.AssetProduct)

	var existing []string
	for i, scene := range req.Scenes {
		existing = append(existing, fmt.Sprintf("Scene %d Visuals: %s\nScene %d Action/Dialogue: %s", i+1, scene.ImagePrompt, i+1, scene.VideoPrompt))
	}

	sb := &strings.Builder{}
	sb.WriteString("You are a creative director for social media video ads. You are continuing an existing storyboard.\n\n")
	sb.WriteString("**Existing Storyboard:**\n")
	sb.WriteString(strings.Join(existing, "\n\n"))
	sb.WriteString("\n\n")
	fmt.Fprintf(sb, "**Product Description:** %s\n", orDefaultDescription(req.ProductDescription))
	fmt.Fprintf(sb, "**Assets Available:** %s.\n", assetSummary(product, character))
	fmt.Fprintf(sb, "**Language:** All output text MUST be in %s.\n\n", req.Language.Instruction())
	sb.WriteString("Your task is to generate ONE new scene that logically follows the last scene and continues the story.\n")
	fmt.Fprintf(sb, "Preserve any characters (%s) and products (%s) from the previous scenes.\n", characterPlaceholder, productPlaceholder)
	sb.WriteString(`You MUST respond with a valid JSON object containing "imagePrompt" and "videoPrompt" for the new scene.` + "\n")
	sb.WriteString("Do not repeat previous scenes. Create a fresh, logical continuation.")
	return sb.String()
}

func buildParaphrasePrompt(prompt string, language domain.Language) string {
	return fmt.Sprintf("Paraphrase this creative prompt to make it more evocative and visually detailed. Keep the core subject and intent the same. Respond only with the new prompt text, in %s. Original prompt: %q", language.Instruction(), prompt)
}

func paraphraseSystemPrompt(language domain.Language) string {
	return fmt.Sprintf("You are an expert prompt writer. Paraphrase the user's prompt to be more evocative and visually detailed, keeping the core subject and intent. Respond only with the new prompt text in %s.", language.Instruction())
}

func buildAnalysisPrompt(language domain.Language) string {
	return fmt.Sprintf(`You are a video analysis expert. Analyze the provided sequence of video frames and respond with a JSON object. The JSON object must contain these exact keys: "hook", "storytelling", "sellingPoints" (an array of strings), and "scenes" (an array of objects). Each scene object must have "startTime", "endTime", "description", and "action". The response MUST be entirely in %s. Describe the video's hook, its narrative, key selling points, and a breakdown of scenes with timestamps and descriptions. Do not wrap the JSON in markdown code fences.`, language.Instruction())
}
