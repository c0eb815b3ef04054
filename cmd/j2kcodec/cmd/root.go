package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rasterlab/j2kcore/internal/j2klog"
)

// NewRoot builds the j2kcodec command tree: encode and decode
// subcommands sharing a --log-file flag that, when set, switches
// logging from stderr to a lumberjack-backed rotating file.
func NewRoot(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:   "j2kcodec",
		Short: "encode and decode JPEG 2000 images",
	}

	pf := root.PersistentFlags()
	pf.String("log-file", "", "write logs to this rotating file instead of stderr")
	pf.Int("log-max-size-mb", 50, "rotate the log file after it reaches this size")
	pf.Int("log-max-backups", 3, "number of rotated log files to keep")
	pf.Int("log-max-age-days", 28, "delete rotated log files older than this many days")

	root.AddCommand(NewEncodeCmd(ctx), NewDecodeCmd(ctx))
	return root
}

func loggerFromFlags(cmd *cobra.Command) *j2klog.Logger {
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		return j2klog.Default()
	}
	maxSize, _ := cmd.Flags().GetInt("log-max-size-mb")
	maxBackups, _ := cmd.Flags().GetInt("log-max-backups")
	maxAge, _ := cmd.Flags().GetInt("log-max-age-days")
	return j2klog.NewRotatingFile(path, maxSize, maxBackups, maxAge)
}
