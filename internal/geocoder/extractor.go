package geocoder

import (
	"regexp"
	"strings"
)

// Extractor pulls a place name out of a free-text disaster report
type Extractor struct {
	cueRegex *regexp.Regexp
}

// NewExtractor creates a new rule-based location extractor
func NewExtractor() *Extractor {
	return &Extractor{
		// a capitalised phrase after a locative cue, e.g. "flooding in Dhaka" or
		// "earthquake hits San Francisco, California"
		cueRegex: regexp.MustCompile(`\b(?i:in|at|near|hits?|struck|strikes|across|over|around|outside)\s+((?:[A-Z][\p{L}'.-]*)(?:\s+(?:of\s+|de\s+)?[A-Z][\p{L}'.-]*)*(?:,\s*[A-Z][\p{L}'.-]*(?:\s+[A-Z][\p{L}'.-]*)*)?)`),
	}
}

// Extract returns the first location mentioned in text. Finding nothing is a
// normal outcome.
func (e *Extractor) Extract(text string) (string, bool) {
	for _, m := range e.cueRegex.FindAllStringSubmatch(text, -1) {
		if loc := trimPhrase(m[1]); loc != "" {
			return loc, true
		}
	}
	if country := findCountry(text); country != "" {
		return country, true
	}
	return "", false
}

// words that are capitalised in reports but never part of a place name
var trailingNoise = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "today": true, "tonight": true, "yesterday": true,
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
	"the": true, "a": true, "an": true, "i": true, "we": true, "breaking": true, "update": true,
}

func trimPhrase(phrase string) string {
	phrase = strings.TrimRight(strings.TrimSpace(phrase), ".,'-")
	words := strings.Fields(phrase)
	for len(words) > 0 && trailingNoise[strings.ToLower(strings.TrimRight(words[len(words)-1], ",."))] {
		words = words[:len(words)-1]
	}
	for len(words) > 0 && trailingNoise[strings.ToLower(words[0])] {
		words = words[1:]
	}
	return strings.TrimRight(strings.Join(words, " "), ",")
}

var countries = []string{
	"Afghanistan", "Albania", "Algeria", "Angola", "Argentina", "Armenia", "Australia", "Austria", "Azerbaijan",
	"Bahamas", "Bangladesh", "Barbados", "Belgium", "Belize", "Bhutan", "Bolivia", "Bosnia and Herzegovina", "Brazil", "Bulgaria", "Burkina Faso", "Burundi",
	"Cambodia", "Cameroon", "Canada", "Chad", "Chile", "China", "Colombia", "Costa Rica", "Croatia", "Cuba", "Cyprus",
	"Democratic Republic of the Congo", "Denmark", "Dominican Republic",
	"Ecuador", "Egypt", "El Salvador", "Eritrea", "Ethiopia",
	"Fiji", "Finland", "France",
	"Germany", "Ghana", "Greece", "Guatemala", "Guinea",
	"Haiti", "Honduras", "Hungary",
	"Iceland", "India", "Indonesia", "Iran", "Iraq", "Ireland", "Israel", "Italy",
	"Jamaica", "Japan", "Jordan",
	"Kazakhstan", "Kenya", "North Korea", "South Korea",
	"Laos", "Lebanon", "Liberia", "Libya",
	"Madagascar", "Malawi", "Malaysia", "Maldives", "Mali", "Mexico", "Mongolia", "Morocco", "Mozambique", "Myanmar",
	"Nepal", "Netherlands", "New Zealand", "Nicaragua", "Niger", "Nigeria", "Norway",
	"Pakistan", "Panama", "Papua New Guinea", "Peru", "Philippines", "Poland", "Portugal",
	"Romania", "Russia", "Rwanda",
	"Samoa", "Saudi Arabia", "Senegal", "Sierra Leone", "Somalia", "South Africa", "South Sudan", "Spain", "Sri Lanka", "Sudan", "Sweden", "Switzerland", "Syria",
	"Taiwan", "Tajikistan", "Tanzania", "Thailand", "Tonga", "Turkey",
	"Uganda", "Ukraine", "United Kingdom", "United States", "Uruguay", "Uzbekistan",
	"Vanuatu", "Venezuela", "Vietnam",
	"Yemen",
	"Zambia", "Zimbabwe",
}

// findCountry returns the earliest country named in text, matched on word
// boundaries and case-insensitively.
func findCountry(text string) string {
	lower := strings.ToLower(text)
	best, bestIdx := "", -1
	for _, c := range countries {
		idx := indexWord(lower, strings.ToLower(c))
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(c) > len(best)) {
			best, bestIdx = c, idx
		}
	}
	return best
}

func indexWord(s, word string) int {
	from := 0
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		if (i == 0 || !isLetter(s[i-1])) && (end == len(s) || !isLetter(s[end])) {
			return i
		}
		from = i + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
