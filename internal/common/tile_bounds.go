package common

import "fmt"

// TileBounds represents the min/max row and column bounds of a tile set
type TileBounds struct {
	MinCol int
	MaxCol int
	MinRow int
	MaxRow int
}

// Cols returns the number of columns in the bounds
func (tb TileBounds) Cols() int {
	return tb.MaxCol - tb.MinCol + 1
}

// Rows returns the number of rows in the bounds
func (tb TileBounds) Rows() int {
	return tb.MaxRow - tb.MinRow + 1
}

// PixelSize returns the composite width and height for square tiles of tileSize pixels
func (tb TileBounds) PixelSize(tileSize int) (int, int) {
	return tb.Cols() * tileSize, tb.Rows() * tileSize
}

// Contains reports whether column x and row y fall inside the bounds
func (tb TileBounds) Contains(x, y int) bool {
	return x >= tb.MinCol && x <= tb.MaxCol && y >= tb.MinRow && y <= tb.MaxRow
}

// WorldBounds returns the full 2^zoom by 2^zoom grid of a zoom level
func WorldBounds(zoom int) (TileBounds, error) {
	if zoom < 0 || zoom > 22 {
		return TileBounds{}, fmt.Errorf("zoom %d out of range", zoom)
	}
	n := 1 << uint(zoom)
	return TileBounds{MinCol: 0, MaxCol: n - 1, MinRow: 0, MaxRow: n - 1}, nil
}
