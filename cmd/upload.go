package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedforge/merchantfeed/internal/uploader"
)

// newUploadCmd creates the 'upload' subcommand, which pushes an existing feed
// file to the SFTP endpoint.
func newUploadCmd() *cobra.Command {
	var remoteName string

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Uploads a feed file over SFTP",
		Args:  cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}

			path := cfg.Feed.TSVFile
			if len(args) == 1 {
				path = args[0]
			}

			client, err := uploader.New(uploader.Config{
				Host:     cfg.SFTP.Host,
				Port:     cfg.SFTP.Port,
				Username: cfg.SFTP.Username,
				Password: cfg.SFTP.Password,
				Timeout:  cfg.SFTPTimeout(),
			}, rootLogger())
			if err != nil {
				return err
			}

			if err := client.Upload(cmd.Context(), path, remoteName); err != nil {
				return fmt.Errorf("upload feed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteName, "remote-name", "", "remote file name (defaults to the local basename)")
	return cmd
}
