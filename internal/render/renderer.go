// Package render draws a stacks board as a PNG image.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/deathstacks/internal/stacks"
)

const DefaultSquareSize = 72

// MoveHighlight marks the start and end squares of the last move.
type MoveHighlight struct {
	From stacks.Coord
	To   stacks.Coord
}

type RenderOptions struct {
	SquareSize int
	Highlight  *MoveHighlight
	Caption    string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *stacks.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	squareSize int
}

// NewSVGBoardRenderer returns a renderer using squareSize when options leave it unset.
func NewSVGBoardRenderer(squareSize int) BoardRenderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &svgBoardRenderer{squareSize: squareSize}
}

var (
	labelColor  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	heightColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *stacks.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	size := opts.SquareSize
	if size <= 0 {
		size = r.squareSize
	}
	l := newLayout(size)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img, err := rasterize(buildScene(board, l, opts.Highlight), l.width(), l.height())
	if err != nil {
		return nil, err
	}
	drawLabels(img, board, l, opts.Caption)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func rasterize(svg []byte, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func drawLabels(img *image.RGBA, board *stacks.Board, l layout, caption string) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(labelColor)}
	ascent := face.Metrics().Ascent.Ceil()

	for i := 0; i < stacks.BoardSize; i++ {
		col := stacks.Coord{Col: i + 1, Row: 1}
		x, _ := l.origin(col)
		drawCentered(drawer, string(rune('a'+i)), x+l.square/2, l.margin+stacks.BoardSize*l.square+(l.margin+ascent)/2)

		row := stacks.Coord{Col: 1, Row: i + 1}
		_, y := l.origin(row)
		drawCentered(drawer, strconv.Itoa(i+1), l.margin/2, y+l.square/2+ascent/2)
	}

	if caption = strings.TrimSpace(caption); caption != "" {
		drawCentered(drawer, caption, l.width()/2, (l.margin+ascent)/2)
	}

	// stack heights above two pieces are hard to count from the discs alone
	drawer.Src = image.NewUniform(heightColor)
	for _, sq := range board.Squares() {
		if sq.Len() < 3 {
			continue
		}
		x, y := l.origin(sq.Coord())
		drawer.Dot = fixed.P(x+4, y+ascent+2)
		drawer.DrawString(strconv.Itoa(sq.Len()))
	}
}

func drawCentered(drawer *font.Drawer, text string, cx, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(cx-width/2, baseline)
	drawer.DrawString(text)
}
