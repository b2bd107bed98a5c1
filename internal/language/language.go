package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is the translation language used when none is configured.
const Default = "pt"

type entry struct {
	code2   string
	code3   string
	alt3    string
	display string
}

var languages = []entry{
	{"pt", "por", "", "Portuguese"},
	{"en", "eng", "", "English"},
	{"es", "spa", "", "Spanish"},
	{"fr", "fra", "fre", "French"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"nl", "nld", "dut", "Dutch"},
	{"ca", "cat", "", "Catalan"},
	{"gl", "glg", "", "Galician"},
	{"eu", "eus", "baq", "Basque"},
	{"pl", "pol", "", "Polish"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
		m[strings.ToLower(e.display)] = e
	}
	return m
}()

// Normalize returns the two-letter code for value. Empty input yields
// Default; input that is neither a known name nor a parseable tag yields "".
func Normalize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Default
	}
	if e, ok := index[v]; ok {
		return e.code2
	}
	tag, err := xlang.Parse(v)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return ""
	}
	if e, ok := index[base.String()]; ok {
		return e.code2
	}
	return base.String()
}

// DisplayName returns the English name of the language, or the uppercased
// input when it cannot be resolved.
func DisplayName(value string) string {
	code := Normalize(value)
	if e, ok := index[code]; ok {
		return e.display
	}
	if code != "" {
		if tag, err := xlang.Parse(code); err == nil {
			if name := display.English.Languages().Name(tag); name != "" {
				return name
			}
		}
	}
	return strings.ToUpper(strings.TrimSpace(value))
}
