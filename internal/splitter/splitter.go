// Package splitter cuts text into overlapping character windows so no
// semantic unit is severed at a boundary without also appearing in the
// neighboring chunk.
package splitter

import "strings"

const (
	DefaultChunkSize    = 1000 // characters
	DefaultChunkOverlap = 200  // characters
)

// Piece is one window of the source text with its character offset.
type Piece struct {
	Text        string
	StartOffset int
}

// Split cuts content into pieces of at most size characters with the given
// overlap between consecutive pieces. Boundaries prefer a space, newline, or
// period found within the last tenth of the window.
func Split(content string, size, overlap int) []Piece {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	base := leadingSpace(content)
	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}

	if contentLen <= size {
		return []Piece{{Text: content, StartOffset: base}}
	}

	var pieces []Piece
	start := 0
	for start < contentLen {
		end := min(start+size, contentLen)

		if end < contentLen {
			// Look for a clean break point in the last 10% of the window.
			lookBack := min(size/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		piece := content[start:end]
		lead := leadingSpace(piece)
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			pieces = append(pieces, Piece{Text: trimmed, StartOffset: base + start + lead})
		}

		start += size - overlap
		if start >= contentLen {
			break
		}
	}

	return pieces
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\n\r"))
}
