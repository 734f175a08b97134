package types

import "time"

// Asset is a photo owned by the gallery. The segmentation core only reads it.
type Asset struct {
	// Stable identifier for the asset.
	// example: 6f1c2a9e
	ID string `json:"id" example:"6f1c2a9e"`
	// Display URI (local file path or URL).
	// example: /home/user/Pictures/chair.jpg
	URI string `json:"uri" example:"/home/user/Pictures/chair.jpg"`
	// Native pixel width.
	// example: 3024
	Width int `json:"width" example:"3024"`
	// Native pixel height.
	// example: 4032
	Height int `json:"height" example:"4032"`
	// Last modification time, used for newest-first ordering.
	ModTime time.Time `json:"mod_time"`
}

// Label marks a point as foreground (include) or background (exclude).
type Label int

const (
	Background Label = 0
	Foreground Label = 1
)

func (l Label) String() string {
	if l == Background {
		return "background"
	}
	return "foreground"
}

// Point is a prompt location in source-asset pixel space.
type Point struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Label Label `json:"label"`
}

// Layout is the measured on-screen size of the rendered (fitted) image.
type Layout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Touch is a touch location relative to the rendered image's top-left corner.
type Touch struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ModelRef points at a generated 3D model.
type ModelRef struct {
	// Primary model URL (GLB).
	URL string `json:"url"`
	// Optional platform-specific alternate format (USDZ).
	AltURL string `json:"alt_url,omitempty"`
}

// ModelDescriptor describes a previously generated model held by the remote service.
type ModelDescriptor struct {
	Key          string     `json:"key"`
	URL          string     `json:"url"`
	LastModified *time.Time `json:"last_modified"`
	Size         *int64     `json:"size,omitempty"`
}
