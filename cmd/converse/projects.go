package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var projectsWithPrompts bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if projectsWithPrompts {
			overviews, err := chat.Overview(ctx)
			if err != nil {
				return err
			}
			for _, ov := range overviews {
				fmt.Printf("%s  %s\n", ov.Project.ID, ov.Project.Name)
				for _, p := range ov.Prompts {
					fmt.Printf("    prompt %s  %s\n", p.ID, p.Name)
				}
			}
			return nil
		}

		projects, err := chat.Projects().ListProjects(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
		}
		return w.Flush()
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := chat.Projects().UpdateProject(ctx, args[0], args[1], "")
		if err != nil {
			return err
		}
		fmt.Printf("renamed %s to %q\n", p.ID, p.Name)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if err := chat.Projects().DeleteProject(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	projectsListCmd.Flags().BoolVar(&projectsWithPrompts, "with-prompts", false, "include each project's saved prompts")
	projectsCmd.AddCommand(projectsListCmd, projectsRenameCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}
