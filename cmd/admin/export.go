package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resumeMatch/internal/export"
	"resumeMatch/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Manage exported result PDFs",
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exported PDFs in object storage",
	Args:  cobra.NoArgs,
	RunE:  runExportList,
}

var exportPurgeCmd = &cobra.Command{
	Use:   "purge <session-id>",
	Short: "Delete a session's export record and its PDFs",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportPurge,
}

var exportListLimit int

func init() {
	exportListCmd.Flags().IntVar(&exportListLimit, "limit", 100, "Maximum number of objects to list")
	exportCmd.AddCommand(exportListCmd, exportPurgeCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateExport(); err != nil {
		return fmt.Errorf("export is not configured: %w", err)
	}
	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}

	objects, err := storageClient.ListObjects(cmd.Context(), "exports/", exportListLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tLAST MODIFIED")
	for _, obj := range objects {
		fmt.Fprintf(w, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runExportPurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateExport(); err != nil {
		return fmt.Errorf("export is not configured: %w", err)
	}
	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}
	client, err := connectRedis(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	svc := export.NewService(export.NewRedisRecords(client, cfg.Session.TTL), nil, storageClient, nil)
	if err := svc.Purge(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("purge export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exports of session %s purged\n", args[0])
	return nil
}
