// Package sam3d is the client for the remote segmentation and 3D generation
// service. Every call is stateless; response parsing is isolated in the
// Parse* functions so tolerance for backend drift lives in one place.
package sam3d

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spacelens/pkg/types"
)

// Endpoint paths relative to the base address.
const (
	SegmentPath  = "/segment/"
	GeneratePath = "/generate3d/"
	ListPath     = "/list3d/"
)

const (
	defaultTimeout        = 120 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

// Image is an upload-ready encoded image.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Config configures a Client. BaseURL is required.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
	// HTTPClient overrides the transport; mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the remote service over HTTP with bearer authentication.
type Client struct {
	base string
	rc   *resty.Client
	log  zerolog.Logger
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("sam3d: empty base url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		hc = &http.Client{Transport: tr}
	}
	rc := resty.NewWithClient(hc).
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetLogger(restyLogger{cfg.Logger})
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{base: base, rc: rc, log: cfg.Logger}, nil
}

// BaseURL returns the normalized base address.
func (c *Client) BaseURL() string { return c.base }

// Segment uploads the image with the ordered point list and returns the
// preview and/or mask references.
func (c *Client) Segment(ctx context.Context, img Image, points []types.Point) (SegmentationResult, error) {
	payload, err := json.Marshal(wirePoints(points))
	if err != nil {
		return SegmentationResult{}, err
	}
	resp, err := c.upload(ctx, "segment", SegmentPath, img, map[string]string{"points_json": string(payload)})
	if err != nil {
		return SegmentationResult{}, err
	}
	return ParseSegmentResponse(resp.Header().Get("Content-Type"), resp.Body(), c.base)
}

// Generate3D uploads the image and an optional anchor hint and returns the
// generated model references.
func (c *Client) Generate3D(ctx context.Context, img Image, anchor *types.Point) (types.ModelRef, error) {
	form := map[string]string{}
	if anchor != nil {
		form["x"] = strconv.Itoa(anchor.X)
		form["y"] = strconv.Itoa(anchor.Y)
	}
	resp, err := c.upload(ctx, "generate3d", GeneratePath, img, form)
	if err != nil {
		return types.ModelRef{}, err
	}
	return ParseGenerateResponse(resp.Body(), c.base)
}

// ListModels returns the previously generated models known to the service.
func (c *Client) ListModels(ctx context.Context) ([]types.ModelDescriptor, error) {
	rid := uuid.NewString()
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", rid).
		SetHeader("Accept", "application/json").
		Get(ListPath)
	if err := c.check(ctx, "list3d", rid, start, resp, err); err != nil {
		return nil, err
	}
	return ParseListResponse(resp.Body(), c.base)
}

func (c *Client) upload(ctx context.Context, op, path string, img Image, form map[string]string) (*resty.Response, error) {
	if len(img.Data) == 0 {
		return nil, &Error{Op: op, Err: errors.New("empty image")}
	}
	name := img.Filename
	if name == "" {
		name = "image.jpg"
	}
	ct := img.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	rid := uuid.NewString()
	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", rid).
		SetMultipartField("file", name, ct, bytes.NewReader(img.Data)).
		SetFormData(form).
		Post(path)
	if err := c.check(ctx, op, rid, start, resp, err); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) check(ctx context.Context, op, rid string, start time.Time, resp *resty.Response, err error) error {
	dur := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.log.Warn().Str("op", op).Str("request_id", rid).Dur("dur", dur).Err(err).Msg("sam3d transport error")
		return &Error{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > 4096 {
			body = body[:4096]
		}
		c.log.Warn().Str("op", op).Str("request_id", rid).Int("status", resp.StatusCode()).Dur("dur", dur).Msg("sam3d error status")
		return &Error{Op: op, Status: resp.StatusCode(), Body: string(body)}
	}
	c.log.Debug().Str("op", op).Str("request_id", rid).Int("status", resp.StatusCode()).Dur("dur", dur).Msg("sam3d ok")
	return nil
}

type wirePoint struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Label int `json:"label"`
}

func wirePoints(points []types.Point) []wirePoint {
	out := make([]wirePoint, len(points))
	for i, p := range points {
		out[i] = wirePoint{X: p.X, Y: p.Y, Label: int(p.Label)}
	}
	return out
}

// restyLogger routes resty's internal messages into zerolog.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
