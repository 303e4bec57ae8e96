package leaderboard

import "strings"

// Providers maps a "provider/" model prefix onto its logo slug. Anything not
// listed falls back to the raw provider string.
var Providers = map[string]string{
	"openai":     "openai",
	"anthropic":  "anthropic",
	"google":     "google",
	"meta-llama": "meta",
	"mistralai":  "mistral",
	"x-ai":       "xai",
	"deepseek":   "deepseek",
	"qwen":       "qwen",
}

// glyphs are the terminal stand-ins for provider logos. A slug without a glyph
// behaves like a logo that failed to load: it is simply not drawn.
var glyphs = map[string]string{
	"openai":    "◎",
	"anthropic": "✶",
	"google":    "◆",
	"meta":      "∞",
	"mistral":   "▚",
	"xai":       "✕",
	"deepseek":  "◉",
	"qwen":      "◈",
}

const logoBaseURL = "https://models.dev/logos/"

// Provider returns the prefix before the first "/", or "" when there is none.
func Provider(model string) string {
	provider, _, found := strings.Cut(model, "/")
	if !found {
		return ""
	}
	return provider
}

// DisplayName returns the part after "provider/", or model when there is no
// such part.
func DisplayName(model string) string {
	_, name, found := strings.Cut(model, "/")
	if !found || name == "" {
		return model
	}
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Slug resolves the logo slug for model through the Providers table.
func Slug(model string) string {
	provider := Provider(model)
	if provider == "" {
		provider = model
	}
	if slug, ok := Providers[provider]; ok {
		return slug
	}
	return provider
}

// LogoURL is the models.dev logo location for model; "" when model is empty.
func LogoURL(model string) string {
	if strings.TrimSpace(model) == "" {
		return ""
	}
	return logoBaseURL + Slug(model) + ".svg"
}

// Badge returns the logo glyph for model. ok is false when no logo exists and
// the caller should render text only.
func Badge(model string) (string, bool) {
	if strings.TrimSpace(model) == "" {
		return "", false
	}
	glyph, ok := glyphs[Slug(model)]
	return glyph, ok
}
