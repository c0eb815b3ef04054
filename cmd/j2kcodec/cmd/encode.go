package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/rasterlab/j2kcore"
)

// NewEncodeCmd builds the "encode" subcommand, mapping its flags onto
// jpeg2000.Options.
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <input> <output.jp2>",
		Short: "encode a PNG or JPEG image as JPEG 2000",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromFlags(cmd)
			logger.Info("starting, input=%s output=%s", args[0], args[1])

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer in.Close()

			src, _, err := image.Decode(in)
			if err != nil {
				return fmt.Errorf("failed to decode input image: %w", err)
			}

			opts := jpeg2000.DefaultOptions()
			if v, _ := cmd.Flags().GetBool("lossless"); v {
				opts.Lossless = true
			}
			if v, _ := cmd.Flags().GetInt("quality"); v > 0 {
				opts.Quality = v
			}
			if v, _ := cmd.Flags().GetFloat64("ratio"); v > 0 {
				opts.CompressionRatio = v
			}
			if v, _ := cmd.Flags().GetInt("resolutions"); v > 0 {
				opts.NumResolutions = v
			}
			if v, _ := cmd.Flags().GetInt("layers"); v > 0 {
				opts.NumLayers = v
			}
			if v, _ := cmd.Flags().GetString("comment"); v != "" {
				opts.Comment = v
			}
			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer out.Close()

			if err := jpeg2000.EncodeContext(ctx, out, src, opts); err != nil {
				logger.Error("encode failed: %v", err)
				return fmt.Errorf("failed to encode: %w", err)
			}
			logger.Info("encode complete")
			return nil
		},
	}

	pf := cmd.Flags()
	pf.Bool("lossless", false, "use the reversible 5-3 wavelet transform")
	pf.Int("quality", 0, "compression quality 1-100 (0 uses the default)")
	pf.Float64("ratio", 0, "target compression ratio, e.g. 20 for 20:1")
	pf.Int("resolutions", 0, "number of resolution levels (0 uses the default)")
	pf.Int("layers", 0, "number of quality layers (0 uses the default)")
	pf.String("comment", "", "embed a COM marker comment")
	return cmd
}
