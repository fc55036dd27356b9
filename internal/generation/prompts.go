package generation

import (
	"fmt"
	"strings"

	"github.com/kaymio/productcast/internal/openai"
)

const (
	defaultConcept       = "Unknown Concept"
	defaultDescription   = "Compelling Pinterest-ready description."
	defaultCTA           = "Shop via the link in bio."
	defaultShortTitle    = "Untitled Short"
	defaultShortDesc     = "Discover why creators love this find."
	defaultPinterestSeed = "Lifestyle Find"
	defaultInstagramSeed = "trending find"
	defaultTikTokSeed    = "viral find"
	defaultYouTubeSeed   = "shorts find"
	defaultVideoSubject  = "this product"
)

const (
	pinImagePrompt = "Design a polished product visual with a clear hero focus, scroll-stopping composition, " +
		"and cohesive lighting suitable for social platforms. Do not add any on-screen text, the output must be a pure image."

	instagramImagePrompt = "Design a high-performing Instagram %s visual with trending color grading, " +
		"dynamic lighting, and a magnetic focus on the hero product, but do not add any on-screen text, the output must be a pure image."

	previewVideoPrompt = "Create a dynamic short-form video for %s. Include upbeat pacing, text overlays " +
		"highlighting the benefits, and close with a CTA to tap the affiliate link."

	youtubeVideoPrompt = "Create a vertical YouTube Short for '%s' with upbeat pacing, dynamic camera moves, " +
		"and a CTA to tap the affiliate link, but do not add any on-screen text, the output must be pure video."

	tiktokVideoPrompt = "Create a TikTok-ready vertical video for '%s' using trendy motion graphics, quick cuts, " +
		"and camera moves that highlight the wow factor, but keep the footage clean with no text or overlays."
)

func refinedTitlePrompt(title, description, extra string) openai.Prompt {
	text := fmt.Sprintf("Title: %s\nDescription: %s\nExtra Pinterest Context: %s", title, description, extra)
	return openai.Prompt{
		System:      "You are a Pinterest SEO copywriter. Craft concise, keyword-rich product titles that entice shoppers in under 70 characters.",
		User:        "Generate a Pinterest-ready product title (max 70 characters) from this context:\n" + text,
		MaxTokens:   40,
		Temperature: 0.7,
	}
}

func descriptionPrompt(title, description, extra string) openai.Prompt {
	text := fmt.Sprintf("Product Title: %s\nDescription: %s\nExtra Pinterest Context: %s", title, description, extra)
	return openai.Prompt{
		System: "You are an affiliate marketing copywriter who writes compelling Pinterest pin descriptions " +
			"that highlight benefits, urgency, and relevance.",
		User:        "Write a two sentence Pinterest pin description from this information. Make it descriptive, energetic, and conversion-focused:\n" + text,
		MaxTokens:   120,
		Temperature: 0.5,
	}
}

func pinterestTagsPrompt(title, description string) openai.Prompt {
	return openai.Prompt{
		System:      "Provide a JSON array of concise Pinterest SEO tags that would help the pin rank.",
		User:        fmt.Sprintf("Title: %s\nDescription: %s", title, description),
		MaxTokens:   200,
		Temperature: 0.2,
	}
}

func instagramCaptionPrompt(title, description, cta string) openai.Prompt {
	if strings.TrimSpace(cta) == "" {
		cta = defaultCTA
	}
	return openai.Prompt{
		System: "You write engaging Instagram captions that mix emoji dividers, social proof, and urgency.",
		User: fmt.Sprintf("Product title: %s\nDescription: %s\nCTA: %s\n"+
			"Write a playful, benefit-first Instagram caption under 2200 characters with spaced lines.", title, description, cta),
		MaxTokens:   300,
		Temperature: 0.7,
	}
}

func instagramHashtagsPrompt(title, description string) openai.Prompt {
	return openai.Prompt{
		System:      "Provide concise Instagram hashtags that can help reach shoppers.",
		User:        fmt.Sprintf("Title: %s\nDescription: %s\nReturn JSON array of short, niche hashtags.", title, description),
		MaxTokens:   200,
		Temperature: 0.4,
	}
}

func tiktokCaptionPrompt(title, description string) openai.Prompt {
	return openai.Prompt{
		System: "You craft Gen Z friendly TikTok captions with emoji hooks and urgency.",
		User: fmt.Sprintf("Product title: %s\nDescription: %s\n"+
			"Write a short TikTok caption (<150 chars) with a hook + CTA.", title, description),
		MaxTokens:   120,
		Temperature: 0.8,
	}
}

func tiktokHashtagsPrompt(title, description string) openai.Prompt {
	return openai.Prompt{
		System:      "Provide discoverable TikTok hashtags mixing niche + broad search terms.",
		User:        fmt.Sprintf("Title: %s\nDescription: %s\nReturn JSON array of TikTok hashtags.", title, description),
		MaxTokens:   150,
		Temperature: 0.5,
	}
}

func youtubeMetadataPrompt(title, description string) openai.Prompt {
	return openai.Prompt{
		System: "You create compelling metadata for YouTube Shorts and return strict JSON.",
		User: "Return JSON with keys title, description, keywords. Title < 100 chars, description < 500 chars. " +
			fmt.Sprintf("Product title: %s\nDescription: %s\nFocus on YouTube Shorts shoppers.", title, description),
		MaxTokens:   300,
		Temperature: 0.4,
	}
}

func websiteDescriptionPrompt(title, base, boost string) openai.Prompt {
	text := fmt.Sprintf("Title: %s\nExisting Description: %s\nBoost Prompt: %s", title, base, boost)
	return openai.Prompt{
		System: "You are an e-commerce copywriter. Expand concise marketing copy into a compelling " +
			"store-ready product description in under 180 words.",
		User:        "Rewrite the e-commerce product description using the boost prompt guidance:\n" + text,
		MaxTokens:   220,
		Temperature: 0.6,
	}
}

// videoPrompt picks the platform template and appends creator guidance for
// YouTube.
func videoPrompt(target, title, boost string) string {
	if strings.TrimSpace(title) == "" {
		title = defaultVideoSubject
	}
	if target == TargetTikTok {
		return fmt.Sprintf(tiktokVideoPrompt, title)
	}
	prompt := fmt.Sprintf(youtubeVideoPrompt, title)
	if boost = strings.TrimSpace(boost); boost != "" {
		prompt += "\n\nAdditional creator guidance (safe content details): " + boost
	}
	return prompt
}
