// Package recliner repairs delimiter-split lines whose quoted numeric fields
// carried the delimiter as a thousands separator.
//
// NSE csv downloads quote every value but do not escape the commas inside
// them, so "24,378.15" is split into `"24` and `378.15"` by a naive split.
// Recline walks the tokens once and glues such fragments back together.
package recliner

import "strings"

// Quote is the quote character used by the exchange csv feeds.
const Quote = `"`

type state int

const (
	outside state = iota
	inside
)

// Recline reconstructs the intended fields of one naively split line.
// Quoted fields are emitted without quotes and without any delimiter
// characters; unquoted fields pass through unchanged, in order.
//
// A quote left open at the end of the line is not an error: the buffered
// fragments are emitted as-is as the last field. Callers that need strict
// rows should compare the field count against their schema.
func Recline(tokens []string, delim string) []string {
	out := make([]string, 0, len(tokens))
	st := outside
	var buf strings.Builder

	for _, tok := range tokens {
		switch st {
		case outside:
			switch {
			case isClosedQuoted(tok):
				out = append(out, stripDelim(strings.Trim(tok, Quote), delim))
			case strings.HasPrefix(tok, Quote):
				st = inside
				buf.Reset()
				buf.WriteString(strings.Trim(tok, Quote))
			default:
				out = append(out, tok)
			}
		case inside:
			buf.WriteString(delim)
			if strings.HasSuffix(tok, Quote) {
				buf.WriteString(strings.Trim(tok, Quote))
				out = append(out, stripDelim(buf.String(), delim))
				buf.Reset()
				st = outside
				continue
			}
			buf.WriteString(tok)
		}
	}

	if st == inside {
		out = append(out, buf.String())
	}
	return out
}

// ReclineLine splits line on delim, reclines the tokens and joins them back.
func ReclineLine(line, delim string) string {
	return strings.Join(Recline(strings.Split(line, delim), delim), delim)
}

// ReclineLines applies ReclineLine to every line.
func ReclineLines(lines []string, delim string) []string {
	cleaned := make([]string, len(lines))
	for i, line := range lines {
		cleaned[i] = ReclineLine(line, delim)
	}
	return cleaned
}

// isClosedQuoted reports whether tok is a single, fully quoted field.
func isClosedQuoted(tok string) bool {
	return len(tok) >= 2 &&
		strings.HasPrefix(tok, Quote) &&
		strings.HasSuffix(tok, Quote) &&
		strings.Count(tok, Quote) == 2
}

func stripDelim(s, delim string) string {
	if delim == "" {
		return s
	}
	return strings.ReplaceAll(s, delim, "")
}
