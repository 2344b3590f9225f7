package segment

import (
	"strings"
)

// Extract splits an accumulated transcript buffer into completed sentences
// and the remainder to carry over to the next call.
//
// A sentence is a maximal run of characters not containing '.', '!' or '?',
// terminated by one of those characters followed by whitespace or
// end-of-string. Sentences are returned left-to-right, each trimmed of
// surrounding whitespace.
//
// The remainder is the substring strictly after the last literal ". "
// (period-space) in the buffer, trimmed; if no ". " occurs the remainder is
// empty. Note the remainder rule is keyed on ". " only and does not
// special-case '!' or '?' terminators, so a buffer whose last completed
// sentence ends in '!' or '?' can leave that sentence in the remainder.
// Callers must tolerate this; downstream consumers depend on the current
// behavior.
//
// Extract never mutates its input. The caller owns buffer concatenation
// (trim(old) + " " + trim(fragment)) before calling.
func Extract(buffer string) ([]string, string) {
	var sentences []string

	start := 0
	for i := 0; i < len(buffer); i++ {
		switch buffer[i] {
		case '.', '!', '?':
			if i+1 < len(buffer) && !isSpace(buffer[i+1]) {
				continue
			}
			sentence := strings.TrimSpace(buffer[start : i+1])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}

	return sentences, remainder(buffer)
}

// remainder returns the text after the last literal ". " in the buffer.
func remainder(buffer string) string {
	idx := strings.LastIndex(buffer, ". ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(buffer[idx+2:])
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
