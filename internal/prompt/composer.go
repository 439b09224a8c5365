// Package prompt builds the text prompts sent to the video provider.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"promovid/internal/domain"
)

// Composer merges style base prompts with user input. Stateless and safe for
// concurrent use.
type Composer struct {
	titler cases.Caser
}

// NewComposer returns a ready Composer.
func NewComposer() *Composer {
	return &Composer{titler: cases.Title(language.Und)}
}

// Compose builds the prompt for a normal generation. The style's base prompt
// leads; free text from the user is appended. When the style carries no base
// prompt a generic templated sentence referencing the product is used
// instead.
func (c *Composer) Compose(style domain.StyleConfig, customText, productName string) string {
	base := strings.TrimSpace(style.BasePrompt)
	if base == "" {
		base = c.genericPrompt(productName)
	}
	custom := strings.TrimSpace(customText)
	if custom == "" {
		return base
	}
	return base + " " + custom
}

// ComposeContinuation builds the prompt for a chained segment. It references
// the previous segment's prompt and the visual analysis of its final frame,
// and explicitly instructs against repeating what the earlier segment showed.
func (c *Composer) ComposeContinuation(productName, previousPrompt string, segmentIndex, duration int, frameAnalysis string) string {
	if segmentIndex < 2 {
		segmentIndex = 2
	}
	product := strings.TrimSpace(productName)
	if product == "" {
		product = "the product"
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Segment %d of an ad for %s, continuing seamlessly from the final frame of the previous shot.", segmentIndex, product)
	if analysis := strings.TrimSpace(frameAnalysis); analysis != "" {
		fmt.Fprintf(sb, " The shot opens on: %s.", strings.TrimRight(analysis, "."))
	}
	if prev := strings.TrimSpace(previousPrompt); prev != "" {
		fmt.Fprintf(sb, " The previous segment was: %q.", prev)
	}
	fmt.Fprintf(sb, " Do not repeat the previous camera move or setting; transition naturally into a new angle or action over %d seconds.", duration)
	return sb.String()
}

func (c *Composer) genericPrompt(productName string) string {
	product := strings.TrimSpace(productName)
	if product == "" {
		return "Commercial advertisement for a product. Slow orbit, dramatic lighting, premium aesthetic. Sharp focus."
	}
	return fmt.Sprintf("Commercial advertisement for %s. Slow orbit, dramatic lighting, premium aesthetic. Sharp focus.", c.titler.String(product))
}
