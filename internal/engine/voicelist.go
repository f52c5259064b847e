package engine

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/book-expert/tts-studio/internal/core"
)

// minEspeakFields is Pty, Language, Age/Gender, VoiceName, File.
const minEspeakFields = 5

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}(?:[_-][A-Za-z0-9]+)*)\s+#`)

// ParseEspeakVoices parses the table printed by `espeak-ng --voices`. The
// language column doubles as the voice ID.
func ParseEspeakVoices(output string) []core.Voice {
	var list []core.Voice

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < minEspeakFields || fields[0] == "Pty" {
			continue
		}

		list = append(list, core.Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}

	return list
}

// ParseSayVoices parses the listing printed by `say -v ?`. The voice name is
// the ID.
func ParseSayVoices(output string) []core.Voice {
	var list []core.Voice

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		match := sayVoiceLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		name := strings.TrimSpace(match[1])
		list = append(list, core.Voice{
			ID:       name,
			Name:     name,
			Language: strings.ReplaceAll(match[2], "_", "-"),
		})
	}

	return list
}
