package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/rasterlab/j2kcore"
)

// NewDecodeCmd builds the "decode" subcommand, which reads a JPEG 2000
// codestream or JP2 file and writes it back out as PNG.
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <input.jp2> <output.png>",
		Short: "decode a JPEG 2000 image to PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromFlags(cmd)
			logger.Info("starting, input=%s output=%s", args[0], args[1])

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer in.Close()

			cfg := &jpeg2000.Config{}
			if v, _ := cmd.Flags().GetInt("reduce"); v > 0 {
				cfg.ReduceResolution = v
			}
			if v, _ := cmd.Flags().GetInt("layers"); v > 0 {
				cfg.QualityLayers = v
			}

			img, err := jpeg2000.DecodeContext(ctx, in, cfg)
			if err != nil {
				logger.Error("decode failed: %v", err)
				return fmt.Errorf("failed to decode: %w", err)
			}

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer out.Close()

			if err := png.Encode(out, img); err != nil {
				return fmt.Errorf("failed to write png: %w", err)
			}
			logger.Info("decode complete")
			return nil
		},
	}

	pf := cmd.Flags()
	pf.Int("reduce", 0, "number of resolution levels to skip (0 for full resolution)")
	pf.Int("layers", 0, "number of quality layers to decode (0 for all)")
	return cmd
}
