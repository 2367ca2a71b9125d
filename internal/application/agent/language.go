package agent

import "strings"

// languageNames maps English and French language names to English names
var languageNames = map[string]string{
	"français":   "French",
	"french":     "French",
	"anglais":    "English",
	"english":    "English",
	"espagnol":   "Spanish",
	"spanish":    "Spanish",
	"allemand":   "German",
	"german":     "German",
	"italien":    "Italian",
	"italian":    "Italian",
	"portugais":  "Portuguese",
	"portuguese": "Portuguese",
	"chinois":    "Chinese",
	"chinese":    "Chinese",
	"japonais":   "Japanese",
	"japanese":   "Japanese",
	"arabe":      "Arabic",
	"arabic":     "Arabic",
}

var countryLanguages = map[string]string{
	"france":         "French",
	"united states":  "English",
	"united kingdom": "English",
	"spain":          "Spanish",
	"germany":        "German",
	"italy":          "Italian",
	"portugal":       "Portuguese",
	"china":          "Chinese",
	"japan":          "Japanese",
}

// PreferredLanguage picks the outreach language among the lead's native
// languages. A single language is kept, normalized when it is known. With
// several, the language of the lead's country wins, else the first one when
// known, English otherwise.
// It returns "" when there is no native language.
func PreferredLanguage(native []string, country string) string {
	switch len(native) {
	case 0:
		return ""
	case 1:
		if name, ok := languageNames[strings.ToLower(native[0])]; ok {
			return name
		}
		return native[0]
	}

	if preferred, ok := countryLanguages[strings.ToLower(country)]; ok {
		for _, lang := range native {
			if languageNames[strings.ToLower(lang)] == preferred {
				return preferred
			}
		}
	}

	if name, ok := languageNames[strings.ToLower(native[0])]; ok {
		return name
	}
	return "English"
}

// ResolveOutreachLanguage applies the precedence override, detected, fallback.
// The boolean reports whether the fallback was used.
func ResolveOutreachLanguage(override, detected, fallback string) (string, bool) {
	if override != "" {
		return override, false
	}
	if detected != "" {
		return detected, false
	}
	return fallback, true
}
