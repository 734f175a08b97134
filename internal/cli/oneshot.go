package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spacelens/internal/assets"
	"spacelens/internal/config"
	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

func newClient(cfg config.Config) (*sam3d.Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return sam3d.New(sam3d.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: timeout,
		Logger:  newLogger(cfg),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type segmentOutput struct {
	AssetID    string        `json:"asset_id"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Points     []types.Point `json:"points"`
	Kind       string        `json:"kind"`
	PreviewURL string        `json:"preview_url,omitempty"`
	MaskURL    string        `json:"mask_url,omitempty"`
}

func runSegment(cmd *cobra.Command, opts *Options, image string, rawPoints []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	var pts []types.Point
	for _, s := range rawPoints {
		p, err := parsePoint(s)
		if err != nil {
			return err
		}
		pts = append(pts, p)
	}
	if len(pts) > cfg.MaxPoints {
		pts = pts[len(pts)-cfg.MaxPoints:]
	}
	asset, img, err := assets.LoadFile(image)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	for _, p := range pts {
		if p.X >= asset.Width || p.Y >= asset.Height {
			return fmt.Errorf("point %d,%d outside the %dx%d image", p.X, p.Y, asset.Width, asset.Height)
		}
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	res, err := c.Segment(cmd.Context(), img, pts)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), segmentOutput{
		AssetID:    asset.ID,
		Width:      asset.Width,
		Height:     asset.Height,
		Points:     pts,
		Kind:       res.Kind().String(),
		PreviewURL: res.PreviewURL,
		MaskURL:    res.MaskURL,
	})
}

func runGenerate(cmd *cobra.Command, opts *Options, image, anchor string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	var at *types.Point
	if anchor != "" {
		p, err := parsePoint(anchor)
		if err != nil {
			return err
		}
		at = &p
	}
	_, img, err := assets.LoadFile(image)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	ref, err := c.Generate3D(cmd.Context(), img, at)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), ref)
}

func runModels(cmd *cobra.Command, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	models, err := c.ListModels(cmd.Context())
	if err != nil {
		return err
	}
	if models == nil {
		models = []types.ModelDescriptor{}
	}
	return printJSON(cmd.OutOrStdout(), types.ModelsResponse{Models: models})
}
