package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	workspacesCmd := &cobra.Command{Use: "workspaces", Short: "Workspace operations"}

	// create
	var name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"name": name}
			data, err := doPostJSON(fmt.Sprintf("%s/api/workspaces", apiFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Workspace name (defaults to Workspace N)")
	workspacesCmd.AddCommand(createCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/workspaces", apiFlag))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	workspacesCmd.AddCommand(listCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete WORKSPACE_ID",
		Short: "Delete a workspace and everything it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doDelete(fmt.Sprintf("%s/api/workspaces/%s", apiFlag, args[0]))
		},
	}
	workspacesCmd.AddCommand(deleteCmd)

	// images
	imagesCmd := &cobra.Command{
		Use:   "images WORKSPACE_ID",
		Short: "List images in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/workspaces/%s/images", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	workspacesCmd.AddCommand(imagesCmd)

	rootCmd.AddCommand(workspacesCmd)
}
