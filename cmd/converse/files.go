package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage project files",
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <project-id> <path>",
	Short: "Upload a file to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if err := chat.Files().UploadFile(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("uploaded %s\n", filepath.Base(args[1]))
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesUploadCmd)
	rootCmd.AddCommand(filesCmd)
}
