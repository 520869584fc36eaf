package hashtag

import (
	"strings"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// NWS product categories that end an event name
var eventCategories = map[string]bool{
	"warning":   true,
	"watch":     true,
	"advisory":  true,
	"statement": true,
	"emergency": true,
	"outlook":   true,
	"message":   true,
}

// Generate creates formatted hashtag text from alert data.
//
// Order of hashtags:
// 1. Severity (#Extreme, #Severe, #Moderate, #Minor, #Unknown)
// 2. Event (#WinterStormWarning), then its hazard (#WinterStorm) and category (#Warning)
// 3. Urgency, only when immediate action is expected (#Immediate)
//
// Returns formatted string (e.g., "🏷️ #Severe, #TornadoWarning, #Tornado, #Warning")
func Generate(alert widget.Alert) string {
	var allTags []string

	allTags = append(allTags, "#"+alert.Severity.String())
	allTags = append(allTags, extractEventTags(alert.Event)...)

	if strings.EqualFold(strings.TrimSpace(alert.Urgency), "Immediate") {
		allTags = append(allTags, "#Immediate")
	}

	return formatHashtagText(deduplicateTags(allTags))
}

// extractEventTags extracts hashtags from an NWS event name.
//
// Examples:
//   - "Tornado Warning" -> #TornadoWarning, #Tornado, #Warning
//   - "Winter Weather Advisory" -> #WinterWeatherAdvisory, #WinterWeather, #Advisory
//   - "Special Weather Statement" -> #SpecialWeatherStatement, #SpecialWeather, #Statement
//   - "Blizzard" -> #Blizzard
func extractEventTags(event string) []string {
	words := strings.Fields(cleanEvent(event))
	if len(words) == 0 {
		return nil
	}

	tags := []string{"#" + camelCase(strings.Join(words, " "))}

	last := strings.ToLower(words[len(words)-1])
	if len(words) > 1 && eventCategories[last] {
		tags = append(tags,
			"#"+camelCase(strings.Join(words[:len(words)-1], " ")),
			"#"+camelCase(words[len(words)-1]),
		)
	}

	return tags
}

// cleanEvent drops characters that cannot appear in a hashtag
func cleanEvent(event string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, event)
}

// deduplicateTags removes duplicate tags (case-insensitive) while preserving order.
func deduplicateTags(tags []string) []string {
	seen := make(map[string]bool)
	var uniqueTags []string

	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		if !seen[tagLower] {
			uniqueTags = append(uniqueTags, tag)
			seen[tagLower] = true
		}
	}

	return uniqueTags
}

// formatHashtagText formats hashtags as comma-separated text with emoji prefix.
func formatHashtagText(tags []string) string {
	if len(tags) == 0 {
		return ""
	}

	return "🏷️ " + strings.Join(tags, ", ")
}

// camelCase converts text to CamelCase by capitalizing first letter of each word
// and removing spaces.
func camelCase(text string) string {
	words := strings.Fields(text)
	var result strings.Builder

	for _, word := range words {
		result.WriteString(strings.ToUpper(word[:1]))
		if len(word) > 1 {
			result.WriteString(strings.ToLower(word[1:]))
		}
	}

	return result.String()
}
