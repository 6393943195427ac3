package domain

import "strings"

// DefaultLanguage is used when a request does not name one.
const DefaultLanguage = "fr"

// SupportedLanguages maps ISO 639-1 codes of the 24 official EU languages to display names.
var SupportedLanguages = map[string]string{
	"bg": "Bulgarian", "hr": "Croatian", "cs": "Czech", "da": "Danish",
	"nl": "Dutch", "en": "English", "et": "Estonian", "fi": "Finnish",
	"fr": "French", "de": "German", "el": "Greek", "hu": "Hungarian",
	"ga": "Irish", "it": "Italian", "lv": "Latvian", "lt": "Lithuanian",
	"mt": "Maltese", "pl": "Polish", "pt": "Portuguese", "ro": "Romanian",
	"sk": "Slovak", "sl": "Slovenian", "es": "Spanish", "sv": "Swedish",
}

// IsSupportedLanguage reports whether code (any case) is supported.
func IsSupportedLanguage(code string) bool {
	_, ok := SupportedLanguages[strings.ToLower(code)]
	return ok
}

// LanguageName returns the display name for code, or "Unknown".
func LanguageName(code string) string {
	if name, ok := SupportedLanguages[strings.ToLower(code)]; ok {
		return name
	}
	return "Unknown"
}
