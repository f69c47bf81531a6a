package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	s3blob "github.com/aegistech/base-markets/internal/blob/s3"
	"github.com/aegistech/base-markets/internal/domain"
)

var archivePrefix string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived activity",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived activity files in S3",
	RunE:  runArchiveList,
}

func init() {
	archiveListCmd.Flags().StringVar(&archivePrefix, "prefix", "activity/", "object key prefix")
	archiveCmd.AddCommand(archiveListCmd)
}

func runArchiveList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.S3.Enabled {
		return errors.New("s3 is not enabled in the configuration")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return err
	}
	return listBlobs(ctx, cmd.OutOrStdout(), s3blob.NewReader(client), archivePrefix)
}

func listBlobs(ctx context.Context, w io.Writer, r domain.BlobReader, prefix string) error {
	items, err := r.List(ctx, prefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", it.Path, it.Size, it.LastModified.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
