package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage saved prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's saved prompts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		prompts, err := chat.Prompts().ListPrompts(ctx, args[0])
		if err != nil {
			return err
		}
		for _, p := range prompts {
			fmt.Printf("%s  %s\n", p.ID, p.Name)
			if p.Description != "" {
				fmt.Printf("    %s\n", p.Description)
			}
		}
		return nil
	},
}

var promptsRunCmd = &cobra.Command{
	Use:   "run <prompt-id>",
	Short: "Execute a saved prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		run, err := chat.Prompts().RunPrompt(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("run %s: %s\n", run.ID, run.Status)
		if run.OutputData != "" {
			fmt.Println(run.OutputData)
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd, promptsRunCmd)
	rootCmd.AddCommand(promptsCmd)
}
