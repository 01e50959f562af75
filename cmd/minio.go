package cmd

import (
	"fmt"
	"strconv"

	"aistudio/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Show the job artifacts stored in the MinIO bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Minio.Enabled {
			return fmt.Errorf("MinIO is disabled; set minio.enabled or MINIO_ENABLED")
		}
		store, err := storage.NewMinioStore(cmd.Context(), cfg.Minio)
		if err != nil {
			return err
		}
		objects, size, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Endpoint", "Bucket", "Artifacts", "Total size"},
			[][]string{{cfg.Minio.Endpoint, cfg.Minio.Bucket, strconv.Itoa(objects), formatBytes(size)}},
			2, 3))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
