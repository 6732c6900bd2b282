package prompt

import (
	"fmt"
	"strings"
)

// DefaultLanguage is the output language that needs no directive.
const DefaultLanguage = "english"

// hinglishLanguage selects the mixed Hindi/English delivery modes.
const hinglishLanguage = "hinglish"

// HinglishLevel is the ordinal share of Hindi versus English in a Hinglish answer.
type HinglishLevel int

const (
	PureEnglish HinglishLevel = iota
	MostlyEnglish
	Balanced
	MostlyHindi
	PureHindi
)

// DefaultHinglishLevel is used when a Hinglish answer is requested without an intensity.
const DefaultHinglishLevel = Balanced

var hinglishLevelNames = [...]string{
	PureEnglish:   "Pure English",
	MostlyEnglish: "Mostly English",
	Balanced:      "Balanced",
	MostlyHindi:   "Mostly Hindi",
	PureHindi:     "Pure Hindi",
}

// Valid reports whether l is one of the five defined levels.
func (l HinglishLevel) Valid() bool {
	return l >= PureEnglish && l <= PureHindi
}

// Clamp pins l into the defined range.
func (l HinglishLevel) Clamp() HinglishLevel {
	switch {
	case l < PureEnglish:
		return PureEnglish
	case l > PureHindi:
		return PureHindi
	default:
		return l
	}
}

// String returns the delivery mode name, e.g. "Mostly Hindi".
func (l HinglishLevel) String() string {
	return hinglishLevelNames[l.Clamp()]
}

// isDefaultLanguage treats an empty language as the default one.
func isDefaultLanguage(lang string) bool {
	lang = strings.TrimSpace(lang)
	return lang == "" || strings.EqualFold(lang, DefaultLanguage)
}

func isHinglish(lang string) bool {
	return strings.EqualFold(strings.TrimSpace(lang), hinglishLanguage)
}

func hinglishLevel(d Directives) HinglishLevel {
	if d.HinglishIntensity == nil {
		return DefaultHinglishLevel
	}
	return d.HinglishIntensity.Clamp()
}

// languageDirective returns the sentence appended to a prompt for the
// requested output language, or "" for the default language.
func languageDirective(d Directives) string {
	switch {
	case isDefaultLanguage(d.TargetLanguage):
		return ""
	case isHinglish(d.TargetLanguage):
		return fmt.Sprintf("Respond in Hinglish with %s intensity.", hinglishLevel(d))
	default:
		return fmt.Sprintf("Respond in %s.", strings.TrimSpace(d.TargetLanguage))
	}
}
