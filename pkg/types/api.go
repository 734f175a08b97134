package types

// PointRequest is the body of POST /assets/{id}/points and POST /assets/{id}/touch.
// For /touch the coordinates are display-local; for /points they are source pixels.
type PointRequest struct {
	// example: 50
	X float64 `json:"x" example:"50"`
	// example: 50
	Y float64 `json:"y" example:"50"`
	// Optional label for /points: 1 foreground (default), 0 background.
	Label *int `json:"label,omitempty" example:"1"`
}

// PointResponse acknowledges an accepted point.
type PointResponse struct {
	// Request token issued for the segmentation call.
	// example: 3
	Token uint64 `json:"token" example:"3"`
	// Mapped point in source pixel space.
	Point Point `json:"point"`
	// Point list sent to the segmentation backend.
	Points []Point `json:"points"`
}

// GenerateResponse is returned by POST /assets/{id}/generate.
type GenerateResponse struct {
	// example: true
	Accepted bool `json:"accepted" example:"true"`
	// example: 4
	Token uint64 `json:"token,omitempty" example:"4"`
}

// SessionResponse projects the segmentation session of one asset.
type SessionResponse struct {
	AssetID string `json:"asset_id"`
	// One of idle, segmenting, segmented_ready, segmentation_failed,
	// generating, generation_failed, generation_done.
	// example: segmented_ready
	State string `json:"state" example:"segmented_ready"`
	Token uint64 `json:"token"`
	// example: false
	Busy bool `json:"busy" example:"false"`
	// example: true
	CanGenerate bool    `json:"can_generate" example:"true"`
	CanRetry    bool    `json:"can_retry"`
	Points      []Point `json:"points"`
	LastPoint   *Point  `json:"last_point,omitempty"`
	PreviewURL  string  `json:"preview_url,omitempty"`
	MaskURL     string  `json:"mask_url,omitempty"`
	// Result kind: preview_only, mask_only, both.
	ResultKind string    `json:"result_kind,omitempty"`
	Model      *ModelRef `json:"model,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// AssetsResponse is a page of assets returned by GET /assets.
type AssetsResponse struct {
	Assets []Asset `json:"assets"`
	// Cursor for the next page; empty when exhausted.
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ModelsResponse wraps the remote model list returned by GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// GenerationStatus is the gallery's view of one asset's 3D generation.
type GenerationStatus struct {
	AssetID string `json:"asset_id"`
	// One of pending, error, done, canceled.
	// example: done
	Status string    `json:"status" example:"done"`
	Model  *ModelRef `json:"model,omitempty"`
	// Unix seconds of the last status change.
	UpdatedUnix int64 `json:"updated_unix"`
}

// GalleryStatusResponse is returned by GET /gallery/status.
type GalleryStatusResponse struct {
	Statuses []GenerationStatus `json:"statuses"`
}

// AddAssetRequest names a file in the photo library directory to scan.
type AddAssetRequest struct {
	// example: IMG_0042.jpg
	File string `json:"file" example:"IMG_0042.jpg"`
}

// LayoutRequest records the measured on-screen image size.
type LayoutRequest struct {
	// example: 300
	Width float64 `json:"width" example:"300"`
	// example: 400
	Height float64 `json:"height" example:"400"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
