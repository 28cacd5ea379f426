package globe

import "globe-desktop/internal/texture"

// Material is the surface description handed to the renderer
type Material struct {
	Map               *texture.Texture `json:"-"`
	MapZoom           int              `json:"mapZoom,omitempty"`
	Color             uint32           `json:"color,omitempty"`
	Shininess         float64          `json:"shininess"`
	Specular          uint32           `json:"specular"`
	BumpScale         float64          `json:"bumpScale,omitempty"`
	DisplacementScale float64          `json:"displacementScale,omitempty"`
}

// PlaceholderMaterial is shown until the first composite arrives
func PlaceholderMaterial() Material {
	return Material{
		Color:     0x2233ff,
		Shininess: 30,
		Specular:  0x444444,
	}
}

// TexturedMaterial maps a composite onto the globe
func TexturedMaterial(tex *texture.Texture) Material {
	return Material{
		Map:               tex,
		MapZoom:           tex.Zoom,
		Shininess:         300,
		Specular:          0x444444,
		BumpScale:         0.02,
		DisplacementScale: 0.1,
	}
}
