package commentary

import (
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

const maxRemarkLen = 220

// CleanRemark strips reasoning tags, code fences and surrounding quotes from
// a model reply and trims it to display length.
func CleanRemark(text string) string {
	cleaned := strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))

	cleaned = strings.TrimPrefix(cleaned, "```text")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.Trim(cleaned, `"`)
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > maxRemarkLen {
		cut := strings.LastIndex(cleaned[:maxRemarkLen], " ")
		if cut <= 0 {
			cut = maxRemarkLen
		}
		cleaned = cleaned[:cut] + "..."
	}
	return cleaned
}
