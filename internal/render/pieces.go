package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece glyphs are simple silhouettes on a 45x45 viewbox, kept inline so
// the binary carries no asset directory.
var piecePaths = map[nchess.PieceType]string{
	nchess.Pawn:   "M22.5 9a5 5 0 0 0-2.6 9.3c-2.5 1.6-4.2 4.3-4.2 7.4 0 2 .8 3.9 2 5.3-3.5 1.7-6 5.3-6 9.5h21.6c0-4.2-2.5-7.8-6-9.5 1.3-1.4 2-3.3 2-5.3 0-3.1-1.6-5.8-4.2-7.4A5 5 0 0 0 22.5 9z",
	nchess.Rook:   "M9 40.5h27v-4H9zM12 34.5v-14h21v14zM12 18.5l-3-3v-6h5v3h4v-3h9v3h4v-3h5v6l-3 3z",
	nchess.Knight: "M12 40.5h21v-4c0-7-3-9-6-11 4-2 6-6 5-10-2-5-8-7-13-6l-2 4-4 3c-2 2-2 5 0 7l4-2c1 2-1 4-3 7-2 3-2 7-2 12z",
	nchess.Bishop: "M22.5 7.5a2.5 2.5 0 1 0 0 5 2.5 2.5 0 0 0 0-5zM17 25c0-5 3-8 5.5-11C25 17 28 20 28 25c0 3-1 5-2.5 6.5h-6C18 29.5 17 28 17 25zM14 36.5c2-2 4-3 8.5-3s6.5 1 8.5 3v4H14z",
	nchess.Queen:  "M11 14.5l3 12-5-8-1 9 5 5h19l5-5-1-9-5 8 3-12-7 9-2-11-2 11zM13 34.5h19v3H13zM12 39.5h21v2H12z",
	nchess.King:   "M21 6.5h3v4h4v3h-4v4h-3v-4h-4v-3h4zM15 21.5c2-3 5-4 7.5-4s5.5 1 7.5 4c2 3 2 8-1 11H16c-3-3-3-8-1-11zM14 34.5h17v5H14z",
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(piece nchess.Piece) string {
	fill, stroke := "#f5f5f0", "#1a1a1a"
	if piece.Color() == nchess.Black {
		fill, stroke = "#262421", "#d8d8d0"
	}
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45"><path d="%s" fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round"/></svg>`,
		piecePaths[piece.Type()], fill, stroke,
	)
}

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(pieceSVG(piece))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
