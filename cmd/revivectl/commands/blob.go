package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"storefront/internal/domain"
	"storefront/internal/restore"
	"storefront/internal/storage"
)

func blobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Manage public assets in the blob bucket",
	}
	cmd.AddCommand(blobUploadCmd())
	return cmd
}

func blobUploadCmd() *cobra.Command {
	var (
		prefix    string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload demo images or GIFs and print their public URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Capabilities.BlobEnabled {
				return domain.ErrBlobDisabled
			}
			store, err := storage.Open(cmd.Context(), storage.Options{
				BucketURL:     cfg.BlobBucketURL,
				PublicBaseURL: cfg.BlobPublicBaseURL,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			for _, file := range args {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				contentType, ok := restore.SniffMIME(data)
				if !ok {
					return fmt.Errorf("%s: unsupported image format", file)
				}
				key := prefix + "/" + filepath.Base(file)
				if !overwrite {
					exists, err := store.Exists(cmd.Context(), key)
					if err != nil {
						return err
					}
					if exists {
						logger.Info().Str("key", key).Msg("already uploaded, skipping")
						fmt.Fprintln(cmd.OutOrStdout(), store.PublicURL(key))
						continue
					}
				}
				url, err := store.Put(cmd.Context(), key, data, contentType)
				if err != nil {
					return err
				}
				logger.Info().Str("key", key).Int("bytes", len(data)).Msg("uploaded")
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "demos", "key prefix inside the bucket")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace objects that already exist")
	return cmd
}
