package styles

import "promovid/internal/domain"

// defaultStyleKey is the style used when a request names no style or an
// unknown one.
const defaultStyleKey = "rotating"

// builtinStyles is the shipped catalog. Model IDs follow the provider's
// "<provider>:<family>@<version>" convention; prices are per generated video
// in USD.
var builtinStyles = []domain.StyleConfig{
	{
		Key:        "rotating",
		Name:       "Rotating Showcase",
		ModelID:    "vidu:4@2",
		BasePrompt: "Slow 360 orbit around the product on a clean studio surface. Soft key light, gentle reflections, premium feel.",
		Price:      0.13,
	},
	{
		Key:        "unboxing",
		Name:       "Unboxing Reveal",
		ModelID:    "pixverse:1@7",
		BasePrompt: "Hands open premium packaging, tissue paper parts, the product is revealed at the very end. Warm light, anticipation building.",
		Price:      0.24,
		Reveal:     true,
	},
	{
		Key:        "cinematic",
		Name:       "Cinematic Hero",
		ModelID:    "google:3@3",
		BasePrompt: "Cinematic dolly-in on the product, dramatic rim lighting, shallow depth of field, film grain. Premium commercial aesthetic.",
		Price:      0.80,
	},
	{
		Key:        "lifestyle",
		Name:       "Lifestyle Scene",
		ModelID:    "vidu:4@1",
		BasePrompt: "The product in everyday use on a sunlit table, natural handheld camera drift, warm morning light, authentic mood.",
		Price:      0.05,
	},
	{
		Key:        "dynamic",
		Name:       "Dynamic Energy",
		ModelID:    "pixverse:1@7",
		BasePrompt: "Fast push-in toward the product with light streaks and particles, high contrast, bold energetic mood.",
		Price:      0.24,
	},
}
