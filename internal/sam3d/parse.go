package sam3d

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"spacelens/pkg/types"
)

// ResultKind classifies a segmentation response.
type ResultKind int

const (
	Invalid ResultKind = iota
	PreviewOnly
	MaskOnly
	Both
)

func (k ResultKind) String() string {
	switch k {
	case PreviewOnly:
		return "preview_only"
	case MaskOnly:
		return "mask_only"
	case Both:
		return "both"
	default:
		return "invalid"
	}
}

// SegmentationResult holds the artifacts of one segmentation call. A result is
// valid when at least one reference is present.
type SegmentationResult struct {
	AssetID    string `json:"asset_id,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	MaskURL    string `json:"mask_url,omitempty"`
}

// Kind reports which artifacts the result carries.
func (r SegmentationResult) Kind() ResultKind {
	switch {
	case r.PreviewURL != "" && r.MaskURL != "":
		return Both
	case r.PreviewURL != "":
		return PreviewOnly
	case r.MaskURL != "":
		return MaskOnly
	default:
		return Invalid
	}
}

// Valid reports whether the result may be shown and used for generation.
func (r SegmentationResult) Valid() bool { return r.Kind() != Invalid }

// segmentPayload lists every field name the backend has used for each artifact.
type segmentPayload struct {
	SegURL       *string `json:"seg_url"`
	PreviewURL   *string `json:"preview_url"`
	SegURLCamel  *string `json:"segUrl"`
	MaskURL      *string `json:"mask_url"`
	MaskURLCamel *string `json:"maskUrl"`
}

// ParseSegmentResponse turns a 2xx segmentation response into a strict result.
// JSON bodies carry preview and/or mask references, absolute or relative to
// base. Image or octet-stream bodies are the legacy mode: the encoded preview
// itself, returned as a data URL with no mask.
func ParseSegmentResponse(contentType string, body []byte, base string) (SegmentationResult, error) {
	var res SegmentationResult
	switch mediaKind(contentType, body) {
	case kindJSON:
		var p segmentPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return res, contractError{op: "segment", msg: "is not valid JSON: " + err.Error()}
		}
		res.PreviewURL = resolve(base, first(p.SegURL, p.PreviewURL, p.SegURLCamel))
		res.MaskURL = resolve(base, first(p.MaskURL, p.MaskURLCamel))
	case kindBinary:
		if len(body) == 0 {
			return res, contractError{op: "segment", msg: "has an empty image body"}
		}
		ct, _, err := mime.ParseMediaType(contentType)
		if err != nil || !strings.HasPrefix(ct, "image/") {
			ct = http.DetectContentType(body)
		}
		res.PreviewURL = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(body)
	default:
		return res, contractError{op: "segment", msg: "has unsupported content type " + contentType}
	}
	if !res.Valid() {
		return res, contractError{op: "segment", msg: "missing seg_url/mask_url"}
	}
	return res, nil
}

type generatePayload struct {
	GLBURL   *string `json:"glb_url"`
	ModelURL *string `json:"model_url"`
	USDZURL  *string `json:"usdz_url"`
	USDZ     *string `json:"usdz"`
}

// ParseGenerateResponse extracts the model references from a 2xx generation response.
func ParseGenerateResponse(body []byte, base string) (types.ModelRef, error) {
	var p generatePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return types.ModelRef{}, contractError{op: "generate3d", msg: "is not valid JSON: " + err.Error()}
	}
	ref := types.ModelRef{
		URL:    resolve(base, first(p.GLBURL, p.ModelURL)),
		AltURL: resolve(base, first(p.USDZURL, p.USDZ)),
	}
	if ref.URL == "" {
		return types.ModelRef{}, contractError{op: "generate3d", msg: "missing glb_url"}
	}
	return ref, nil
}

type listItem struct {
	Key          string  `json:"key"`
	URL          string  `json:"url"`
	LastModified *string `json:"last_modified"`
	Size         *int64  `json:"size"`
}

// ParseListResponse accepts a bare array or an object wrapping it under
// "items" or "models".
func ParseListResponse(body []byte, base string) ([]types.ModelDescriptor, error) {
	var items []listItem
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrap struct {
			Items  []listItem `json:"items"`
			Models []listItem `json:"models"`
		}
		if err := json.Unmarshal(trimmed, &wrap); err != nil {
			return nil, contractError{op: "list3d", msg: "is not valid JSON: " + err.Error()}
		}
		items = wrap.Items
		if items == nil {
			items = wrap.Models
		}
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, contractError{op: "list3d", msg: "is not valid JSON: " + err.Error()}
	}
	out := make([]types.ModelDescriptor, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		d := types.ModelDescriptor{Key: it.Key, URL: resolve(base, it.URL), Size: it.Size}
		if it.LastModified != nil {
			if ts, ok := parseTime(*it.LastModified); ok {
				d.LastModified = &ts
			}
		}
		out = append(out, d)
	}
	return out, nil
}

const (
	kindUnknown = iota
	kindJSON
	kindBinary
)

func mediaKind(contentType string, body []byte) int {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" {
		// No usable declaration: sniff.
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return kindJSON
		}
		if strings.HasPrefix(http.DetectContentType(body), "image/") {
			return kindBinary
		}
		return kindUnknown
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return kindJSON
	case strings.HasPrefix(mt, "image/") || mt == "application/octet-stream":
		return kindBinary
	default:
		return kindUnknown
	}
}

func first(vals ...*string) string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

// resolve returns ref unchanged when it is absolute (http, https or data URL),
// otherwise joins it onto base.
func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05"}

func parseTime(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if ts, err := time.Parse(l, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
