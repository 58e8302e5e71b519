package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/park285/deathstacks/internal/stacks"
)

var (
	lightSquareHex = "#e9cfa3"
	darkSquareHex  = "#bb8860"
	frameHex       = "#1c1f2e"
	redPieceHex    = "#d64541"
	bluePieceHex   = "#3b6fd6"
	pieceStrokeHex = "#1c1f2e"
	highlightHex   = "#f5c542"
)

type layout struct {
	square int
	margin int
}

func newLayout(square int) layout {
	return layout{square: square, margin: square / 2}
}

func (l layout) width() int  { return stacks.BoardSize*l.square + 2*l.margin }
func (l layout) height() int { return l.width() }

// origin is the top-left pixel of c. Row 6 is drawn at the top.
func (l layout) origin(c stacks.Coord) (x, y int) {
	x = l.margin + (c.Col-1)*l.square
	y = l.margin + (stacks.BoardSize-c.Row)*l.square
	return x, y
}

// discStep is the vertical offset between stacked discs; tall stacks are compressed to fit.
func (l layout) discStep(n int) float64 {
	step := float64(l.square) / 10
	if n > 1 {
		if limit := float64(l.square) * 0.45 / float64(n-1); limit < step {
			step = limit
		}
	}
	return step
}

// discCenter returns the center of the i-th disc (0 = bottom) of an n-high stack on c.
func (l layout) discCenter(c stacks.Coord, i, n int) (cx, cy float64) {
	x, y := l.origin(c)
	cx = float64(x) + float64(l.square)/2
	cy = float64(y) + float64(l.square)*0.68 - float64(i)*l.discStep(n)
	return cx, cy
}

func pieceHex(c stacks.Color) string {
	if c == stacks.Blue {
		return bluePieceHex
	}
	return redPieceHex
}

// buildScene writes the board as an SVG document. Labels are drawn later on the raster.
func buildScene(board *stacks.Board, l layout, hl *MoveHighlight) []byte {
	var b bytes.Buffer
	w, h := l.width(), l.height()
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, w, h, frameHex)

	for _, sq := range board.Squares() {
		c := sq.Coord()
		x, y := l.origin(c)
		fill := lightSquareHex
		if (c.Col+c.Row)%2 == 0 {
			fill = darkSquareHex
		}
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, y, l.square, l.square, fill)
	}

	if hl != nil {
		sw := math.Max(2, float64(l.square)/16)
		for _, c := range []stacks.Coord{hl.From, hl.To} {
			if !c.Valid() {
				continue
			}
			x, y := l.origin(c)
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="%.2f"/>`,
				float64(x)+sw/2, float64(y)+sw/2, float64(l.square)-sw, float64(l.square)-sw, highlightHex, sw)
		}
	}

	rx := float64(l.square) * 0.36
	ry := float64(l.square) * 0.16
	for _, sq := range board.Squares() {
		pieces := sq.Pieces()
		for i, p := range pieces {
			cx, cy := l.discCenter(sq.Coord(), i, len(pieces))
			fmt.Fprintf(&b, `<ellipse cx="%.2f" cy="%.2f" rx="%.2f" ry="%.2f" fill="%s" stroke="%s" stroke-width="1.5"/>`,
				cx, cy, rx, ry, pieceHex(p), pieceStrokeHex)
		}
	}
	b.WriteString(`</svg>`)
	return b.Bytes()
}
