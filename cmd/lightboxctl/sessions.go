package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd := &cobra.Command{Use: "sessions", Short: "Saved session operations"}

	// save
	var name string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current workspace as a named session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/sessions", apiFlag), map[string]interface{}{"name": name})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	saveCmd.Flags().StringVarP(&name, "name", "n", "", "Session name (required)")
	_ = saveCmd.MarkFlagRequired("name")
	sessionsCmd.AddCommand(saveCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/sessions", apiFlag))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(listCmd)

	// load
	loadCmd := &cobra.Command{
		Use:   "load SESSION_ID",
		Short: "Restore a saved session, replacing live state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := doPostJSON(fmt.Sprintf("%s/api/sessions/%s/load", apiFlag, args[0]), map[string]interface{}{})
			return err
		},
	}
	sessionsCmd.AddCommand(loadCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doDelete(fmt.Sprintf("%s/api/sessions/%s", apiFlag, args[0]))
		},
	}
	sessionsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(sessionsCmd)
}
