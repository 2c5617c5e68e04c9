package core

// tokenizer.go turns export text into rows of fields.
//
// The export format is not RFC 4180: a double quote simply toggles quoted
// mode and is never emitted, so "" inside a quoted field produces nothing.
// Quoted mode survives line breaks, which is how multi-line notes are kept
// in one field. An unterminated quote swallows the rest of the input into a
// single trailing field; that is accepted, not repaired.

import (
	"iter"
	"strings"
)

// PreambleLines is the number of non-tabular lines the export writes before the header row.
const PreambleLines = 6

// Tokenize returns the rows of text in file order, keyed by the 1-based line
// number each row starts on. The first skip lines are discarded unread. Lines
// that are blank outside quoted mode are not rows.
//
// The sequence is lazy and can be ranged over any number of times.
func Tokenize(text string, skip int) iter.Seq2[int, RawRow] {
	return func(yield func(int, RawRow) bool) {
		var (
			row      RawRow
			field    strings.Builder
			inQuotes bool
			start    int
		)

		flush := func() {
			row = append(row, strings.TrimSpace(field.String()))
			field.Reset()
		}

		rest := text
		for lineNo := 1; rest != ""; lineNo++ {
			line, after, _ := strings.Cut(rest, "\n")
			rest = after
			if lineNo <= skip {
				continue
			}
			line = strings.TrimSuffix(line, "\r")

			if !inQuotes {
				if strings.TrimSpace(line) == "" {
					continue
				}
				start = lineNo
			}

			for _, r := range line {
				switch {
				case r == '"':
					inQuotes = !inQuotes
				case r == ',' && !inQuotes:
					flush()
				default:
					field.WriteRune(r)
				}
			}

			if inQuotes {
				field.WriteByte('\n')
				continue
			}

			flush()
			if !yield(start, row) {
				return
			}
			row = nil
		}

		if inQuotes {
			flush()
			yield(start, row)
		}
	}
}
