// Package text rewrites resolved input into a form speech engines read aloud
// more naturally.
//
// Normalization is opt-in ([text] normalize = true). URLs and e-mail addresses
// pass through untouched; everything around them gets abbreviation expansion,
// number spelling, quote and dash folding, and whitespace collapsing.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxSpelledNumber is the largest integer spelled out in words. Larger numbers
// are left as digits.
const MaxSpelledNumber = 999_999_999_999

const (
	tokenRegexPattern  = `https?://\S+|[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	numberRegexPattern = `\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b|\b\d+(?:\.\d+)?\b`
	abbrevRegexPattern = `\b(Mr|Mrs|Ms|Dr|Prof|St|Jr|Sr|Co|Ltd|Corp|Inc|vs|etc|e\.g|i\.e)\.`
	repeatRegexPattern = `([!?,;:])[!?,;:]+`
	dotsRegexPattern   = `\.{4,}`
	spaceRegexPattern  = `\s+`
	beforePunctPattern = ` +([,.;:!?])`
)

var abbreviations = map[string]string{
	"Mr":   "Mister",
	"Mrs":  "Misses",
	"Ms":   "Miss",
	"Dr":   "Doctor",
	"Prof": "Professor",
	"St":   "Saint",
	"Jr":   "Junior",
	"Sr":   "Senior",
	"Co":   "Company",
	"Ltd":  "Limited",
	"Corp": "Corporation",
	"Inc":  "Incorporated",
	"vs":   "versus",
	"etc":  "et cetera",
	"e.g":  "for example",
	"i.e":  "that is",
}

var (
	smallNumbers = [...]string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tensNumbers = [...]string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
	}
	scaleNames = [...]string{"", "thousand", "million", "billion"}
)

// Normalizer holds the compiled patterns. It is safe for concurrent use.
type Normalizer struct {
	tokenPattern  *regexp.Regexp
	numberPattern *regexp.Regexp
	abbrevPattern *regexp.Regexp
	repeatPattern *regexp.Regexp
	dotsPattern   *regexp.Regexp
	spacePattern  *regexp.Regexp
	punctPattern  *regexp.Regexp
	typography    *strings.Replacer
}

// NewNormalizer compiles the normalization patterns.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		tokenPattern:  regexp.MustCompile(tokenRegexPattern),
		numberPattern: regexp.MustCompile(numberRegexPattern),
		abbrevPattern: regexp.MustCompile(abbrevRegexPattern),
		repeatPattern: regexp.MustCompile(repeatRegexPattern),
		dotsPattern:   regexp.MustCompile(dotsRegexPattern),
		spacePattern:  regexp.MustCompile(spaceRegexPattern),
		punctPattern:  regexp.MustCompile(beforePunctPattern),
		typography: strings.NewReplacer(
			"—", " - ", "–", "-", "‒", "-",
			"…", "...",
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
			"\u00a0", " ",
		),
	}
}

// Normalize returns input rewritten for speech. Blank input yields "".
func (n *Normalizer) Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	var builder strings.Builder

	last := 0

	for _, span := range n.tokenPattern.FindAllStringIndex(input, -1) {
		builder.WriteString(n.normalizeProse(input[last:span[0]]))
		builder.WriteString(input[span[0]:span[1]])

		last = span[1]
	}

	builder.WriteString(n.normalizeProse(input[last:]))

	collapsed := n.spacePattern.ReplaceAllString(builder.String(), " ")
	collapsed = n.punctPattern.ReplaceAllString(collapsed, "$1")

	return endSentence(strings.TrimSpace(collapsed))
}

func (n *Normalizer) normalizeProse(segment string) string {
	if segment == "" {
		return segment
	}

	segment = n.typography.Replace(segment)
	segment = n.abbrevPattern.ReplaceAllStringFunc(segment, func(match string) string {
		return abbreviations[strings.TrimSuffix(match, ".")]
	})
	segment = n.numberPattern.ReplaceAllStringFunc(segment, spellNumber)
	segment = n.dotsPattern.ReplaceAllString(segment, "...")

	return n.repeatPattern.ReplaceAllString(segment, "$1")
}

func endSentence(text string) string {
	if text == "" {
		return text
	}

	last, _ := utf8.DecodeLastRuneInString(text)

	switch last {
	case '.', '!', '?':
		return text
	case ',', ';', ':':
		return text[:len(text)-1] + "."
	default:
		return text + "."
	}
}

// spellNumber spells an integer or decimal literal such as "1,250" or "3.14".
func spellNumber(literal string) string {
	whole, fraction, hasFraction := strings.Cut(strings.ReplaceAll(literal, ",", ""), ".")

	value, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || value > MaxSpelledNumber {
		return literal
	}

	words := IntegerToWords(value)
	if !hasFraction {
		return words
	}

	digits := make([]string, 0, len(fraction))
	for _, digit := range fraction {
		digits = append(digits, smallNumbers[digit-'0'])
	}

	return words + " point " + strings.Join(digits, " ")
}

// IntegerToWords returns the English words for value. Negative values and
// values above MaxSpelledNumber are returned as digits.
func IntegerToWords(value int64) string {
	if value < 0 || value > MaxSpelledNumber {
		return strconv.FormatInt(value, 10)
	}

	if value == 0 {
		return smallNumbers[0]
	}

	var groups []string

	for scale := 0; value > 0; scale++ {
		group := value % 1000
		value /= 1000

		if group == 0 {
			continue
		}

		words := spellHundreds(int(group))
		if scaleNames[scale] != "" {
			words += " " + scaleNames[scale]
		}

		groups = append([]string{words}, groups...)
	}

	return strings.Join(groups, " ")
}

func spellHundreds(group int) string {
	var parts []string

	if hundreds := group / 100; hundreds > 0 {
		parts = append(parts, smallNumbers[hundreds]+" hundred")
	}

	rest := group % 100

	switch {
	case rest == 0:
	case rest < len(smallNumbers):
		parts = append(parts, smallNumbers[rest])
	case rest%10 == 0:
		parts = append(parts, tensNumbers[rest/10])
	default:
		parts = append(parts, tensNumbers[rest/10]+" "+smallNumbers[rest%10])
	}

	return strings.Join(parts, " ")
}
