package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "spacelens",
		Short:         "Point-prompted segmentation with hand-off to remote 3D generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level: trace|debug|info|warn|error (defaults SPACELENS_LOG_LEVEL or info)")
	pf.StringVar(&opts.BaseURL, "base-url", "", "Remote segmentation/3D service base URL (defaults SPACELENS_BASE_URL)")
	pf.StringVar(&opts.Token, "token", "", "Bearer token for the remote service (defaults SPACELENS_TOKEN)")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API over a local photo directory",
		Example: "  spacelens serve --photos-dir ~/Pictures --base-url http://gpu:8000",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.PhotosDir, "photos-dir", "", "Directory of photos to serve (defaults SPACELENS_PHOTOS_DIR)")
	serveCmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults SPACELENS_ADDR)")

	var segImage string
	var segPoints []string
	segmentCmd := &cobra.Command{
		Use:     "segment",
		Short:   "Segment one image with point prompts and print the result",
		Example: "  spacelens segment --image chair.jpg --point 512,640 --point 100,80,0",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(cmd, opts, segImage, segPoints)
		},
	}
	segmentCmd.Flags().StringVar(&segImage, "image", "", "Image file")
	segmentCmd.Flags().StringArrayVar(&segPoints, "point", nil, "Point x,y[,label] in source pixels (repeatable)")
	_ = segmentCmd.MarkFlagRequired("image")
	_ = segmentCmd.MarkFlagRequired("point")

	var genImage, genAnchor string
	generateCmd := &cobra.Command{
		Use:     "generate",
		Short:   "Generate a 3D model from one image and print the model URLs",
		Example: "  spacelens generate --image chair.jpg --anchor 512,640",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, genImage, genAnchor)
		},
	}
	generateCmd.Flags().StringVar(&genImage, "image", "", "Image file")
	generateCmd.Flags().StringVar(&genAnchor, "anchor", "", "Optional anchor point x,y in source pixels")
	_ = generateCmd.MarkFlagRequired("image")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List previously generated models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, opts)
		},
	}

	root.AddCommand(serveCmd, segmentCmd, generateCmd, modelsCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}
