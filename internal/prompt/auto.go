package prompt

import (
	"fmt"
	"strings"
)

// AutoRequest describes one scene whose prompt should be written by the
// vision model from the attached reference images.
type AutoRequest struct {
	ProductName     string
	SceneNumber     int
	TotalScenes     int
	Duration        int
	PreviousPrompts []string
}

// AutoInstruction renders the instruction text sent alongside the reference
// images. Rules mirror what the provider's prompt guide rewards: short, one
// camera move, no labels, no product description.
func AutoInstruction(req AutoRequest) string {
	product := strings.TrimSpace(req.ProductName)
	if product == "" {
		product = "a product"
	}
	scene := req.SceneNumber
	if scene < 1 {
		scene = 1
	}
	duration := req.Duration
	if duration < 1 {
		duration = 4
	}

	previousCtx := ""
	if len(req.PreviousPrompts) > 0 {
		sb := &strings.Builder{}
		sb.WriteString("Previous scenes already done:\n")
		for i, p := range req.PreviousPrompts {
			fmt.Fprintf(sb, "  Scene %d: %s\n", i+1, p)
		}
		fmt.Fprintf(sb, "Now write scene %d. Do NOT repeat what previous scenes already show. Use a different camera move, angle, or setting.\n", scene)
		previousCtx = sb.String()
	}

	return fmt.Sprintf(
		"Write a short video prompt for a %d-second ad scene for %s (shown in the attached images). "+
			"%s"+
			"RULES: "+
			"1-2 sentences MAXIMUM. "+
			"One camera move, one action. "+
			"Include: camera move + lighting + mood. "+
			"Do NOT describe the product appearance. "+
			"Do NOT use labels like 'Camera:', 'Lighting:', 'Scene:'. "+
			"Do NOT say the duration. "+
			"Just write the prompt as a plain sentence. "+
			"Example: 'Slow orbit around the product on marble surface. Warm rim lighting, soft bokeh. Premium feel.' "+
			"Output ONLY the prompt.",
		duration, product, previousCtx,
	)
}

// AnalysisInstruction asks the vision model to describe a captured final
// frame so the next segment's prompt can reference what it opens on.
func AnalysisInstruction() string {
	return "Describe this video frame in one sentence: the subject, its position in the frame, the lighting, and the camera angle. " +
		"Plain prose, no labels, no opinions. Output ONLY the sentence."
}
