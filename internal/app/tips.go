package app

import (
	"strings"

	"nanjing_go/internal/domain"
)

// tipsSplitter breaks on the escaped two-character "\n" the seed data
// contains as well as on real line breaks.
var tipsSplitter = strings.NewReplacer(`\n`, "\n", "\r\n", "\n")

// ParseTips classifies each non-empty line: a trailing ':' makes a heading,
// a leading '-' a point, anything else a paragraph.
func ParseTips(raw string) []domain.TipLine {
	var out []domain.TipLine
	for _, line := range strings.Split(tipsSplitter.Replace(raw), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasSuffix(line, ":"):
			out = append(out, domain.TipLine{Text: line, Kind: domain.TipHeading})
		case strings.HasPrefix(line, "-"):
			out = append(out, domain.TipLine{Text: line, Kind: domain.TipPoint})
		default:
			out = append(out, domain.TipLine{Text: line, Kind: domain.TipParagraph})
		}
	}
	return out
}
