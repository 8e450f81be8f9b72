package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	exportCmd := &cobra.Command{Use: "export", Short: "Export the current workspace"}

	var outFile string
	for _, format := range []string{"json", "tei", "pdf", "raster"} {
		format := format
		cmd := &cobra.Command{
			Use:   format,
			Short: fmt.Sprintf("Export the current workspace as %s", format),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := doGet(fmt.Sprintf("%s/api/export/%s", apiFlag, format))
				if err != nil {
					return err
				}
				if outFile == "" {
					_, err := os.Stdout.Write(data)
					return err
				}
				return os.WriteFile(outFile, data, 0o644)
			},
		}
		exportCmd.AddCommand(cmd)
	}
	exportCmd.PersistentFlags().StringVarP(&outFile, "out", "o", "", "Output file (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a previously exported file as a new workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			endpoint := fmt.Sprintf("%s/api/import?filename=%s", apiFlag, url.QueryEscape(filepath.Base(args[0])))
			resp, err := newClient().R().SetBody(data).Post(endpoint)
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			_, _ = fmt.Fprintln(os.Stdout, resp.String())
			return nil
		},
	}
	rootCmd.AddCommand(importCmd)
}
