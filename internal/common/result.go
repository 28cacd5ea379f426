package common

// TileFetchResult is the outcome of fetching a single map tile for a texture build
type TileFetchResult struct {
	// X, Y address the tile within the zoom grid
	X, Y int

	// Data holds the raw encoded tile (PNG or JPEG bytes)
	Data []byte

	// Success indicates whether the fetch succeeded
	Success bool

	// Error contains any error that occurred during the fetch
	Error error

	// Cached is set when the bytes came from memory or disk rather than the network
	Cached bool
}
