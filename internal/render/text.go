package render

import (
	"fmt"
	"strings"

	"gomokuplane/internal/gomoku"
)

// Text renders a board with coordinates. Highlighted cells are bracketed.
func Text(b *gomoku.Board, highlights []gomoku.Move) string {
	marked := make(map[gomoku.Move]bool, len(highlights))
	for _, m := range highlights {
		marked[m] = true
	}

	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < b.Size(); c++ {
		fmt.Fprintf(&sb, "%2d ", c)
	}
	sb.WriteByte('\n')
	for r := 0; r < b.Size(); r++ {
		fmt.Fprintf(&sb, "%2d ", r)
		for c := 0; c < b.Size(); c++ {
			m := gomoku.Move{Row: r, Col: c}
			if marked[m] {
				fmt.Fprintf(&sb, "[%s]", b.At(m).Symbol())
			} else {
				fmt.Fprintf(&sb, " %s ", b.At(m).Symbol())
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
