package runware

import "strings"

// optionsBuilder mutates the submission payload with the parameters one
// upstream provider expects.
type optionsBuilder func(payload map[string]any)

// providerOptions dispatches on the provider prefix of a model ID
// ("google:3@3" → "google"). Unknown providers get no extra parameters.
var providerOptions = map[string]optionsBuilder{
	"google": func(p map[string]any) {
		p["fps"] = 24
		p["providerSettings"] = map[string]any{
			"google": map[string]any{
				"generateAudio": true,
				"enhancePrompt": true,
			},
		}
	},
	"vidu": func(p map[string]any) {
		p["providerSettings"] = map[string]any{
			"vidu": map[string]any{
				"audio": true,
			},
		}
	},
	"pixverse": func(p map[string]any) {
		p["providerSettings"] = map[string]any{
			"pixverse": map[string]any{
				"thinking": "auto",
			},
		}
	},
}

// ProviderFromModelID extracts the provider prefix from a model ID. Empty
// when the ID has no prefix.
func ProviderFromModelID(modelID string) string {
	if idx := strings.IndexByte(modelID, ':'); idx > 0 {
		return modelID[:idx]
	}
	return ""
}

// KnownProvider reports whether a model ID names a provider this client can
// parameterize.
func KnownProvider(modelID string) bool {
	_, ok := providerOptions[ProviderFromModelID(modelID)]
	return ok
}

func applyProviderOptions(modelID string, payload map[string]any) {
	if build, ok := providerOptions[ProviderFromModelID(modelID)]; ok {
		build(payload)
	}
}
