// Package coords maps touch locations on a rendered image to source pixels.
package coords

import (
	"math"

	"spacelens/pkg/types"
)

// Map converts a display-local touch into a foreground point in the asset's
// native pixel space. The layout must describe the fitted image bounds, not the
// outer container. It reports false when the layout has not been measured yet;
// callers ignore the touch in that case.
func Map(touch types.Touch, layout *types.Layout, asset types.Asset) (types.Point, bool) {
	if layout == nil || layout.Width <= 0 || layout.Height <= 0 {
		return types.Point{}, false
	}
	return types.Point{
		X:     int(math.Round(touch.X * float64(asset.Width) / layout.Width)),
		Y:     int(math.Round(touch.Y * float64(asset.Height) / layout.Height)),
		Label: types.Foreground,
	}, true
}
