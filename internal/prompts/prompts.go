package prompts

import (
	"fmt"
	"strings"

	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/skin"
)

const skincareSystemPrompt = "You are a professional dermatology advisor. You recommend affordable, widely available skincare products that match the customer's measured skin profile. Only recommend products from the catalog excerpt when one is a good match; otherwise recommend well known products from major brands. Never invent prices or URLs for catalog products."

const skincareUserTemplate = `Based on this skin analysis, recommend exactly %d skincare products.

Skin analysis:
%s

Product catalog excerpt (CSV):
%s

Format your response as a JSON array where each product has these fields: name, brand, price, category, url, reason.
- "category" must be one of: cleanser, moisturizer, serum, sunscreen, treatment, toner.
- "reason" must reference the skin analysis in one short sentence.
- Respond with the JSON array only, no prose and no markdown fences.`

const haircareSystemPrompt = "You are a professional trichology advisor. You recommend haircare products suited to the customer's hair type and reported scalp condition. Prefer widely available products from major brands."

const haircareUserTemplate = `Based on this hair analysis, recommend exactly %d haircare products.

Hair analysis:
%s

Format your response as a JSON array where each product has these fields: name, brand, type, price_estimate, reason.
- "type" must be one of: shampoo, conditioner, mask, oil, styling.
- "reason" must reference the hair analysis in one short sentence.
- Respond with the JSON array only, no prose and no markdown fences.`

// SkincareProductCount is how many products a skincare prompt asks for.
const SkincareProductCount = 10

// HaircareProductCount is how many products a haircare prompt asks for.
const HaircareProductCount = 5

// BuildSkincarePrompts composes the system + user prompt pair for skincare recommendations.
func BuildSkincarePrompts(profile skin.Profile, catalogPreview string) (string, string) {
	user := fmt.Sprintf(skincareUserTemplate, SkincareProductCount, formatSkinProfile(profile), catalogPreview)
	return skincareSystemPrompt, user
}

// BuildHaircarePrompts composes the system + user prompt pair for haircare recommendations.
func BuildHaircarePrompts(profile hair.Profile) (string, string) {
	user := fmt.Sprintf(haircareUserTemplate, HaircareProductCount, formatHairProfile(profile))
	return haircareSystemPrompt, user
}

func formatSkinProfile(profile skin.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Skin tone: %d on a 1-6 scale (1 lightest, 6 deepest)\n", profile.Tone)
	fmt.Fprintf(&b, "- Skin type: %s\n", profile.Type)
	if profile.HasAcne {
		fmt.Fprintf(&b, "- Acne: present, severity %.2f on a 0-1 scale (%.1f%% of the face region shows redness)\n", profile.AcneSeverity(), profile.AcnePercent*100)
	} else {
		b.WriteString("- Acne: none detected\n")
	}
	if len(profile.Concerns) > 0 {
		fmt.Fprintf(&b, "- Reported concerns: %s\n", strings.Join(profile.Concerns, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHairProfile(profile hair.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Hair type: %s\n", profile.Type)
	if profile.Dandruff != "" {
		fmt.Fprintf(&b, "- Dandruff: %s\n", profile.Dandruff)
	}
	if profile.Moisture != "" {
		fmt.Fprintf(&b, "- Moisture level: %s\n", profile.Moisture)
	}
	if profile.Density != "" {
		fmt.Fprintf(&b, "- Density: %s\n", profile.Density)
	}
	return strings.TrimRight(b.String(), "\n")
}
