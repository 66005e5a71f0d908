/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/types"
)

var (
	projectTitle       string
	projectDescription string
	projectLink        string
	projectImageURL    string
	projectImageFile   string
)

// projectCmd represents the project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage portfolio projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a project",
	Long: `Adds a project. The image is either a URL or a local file uploaded
to the configured object storage. Usage:

	portfolio project add --title "Weather App" --description "..." --image-file shot.png
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openAdminApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		project := types.Project{
			Title:       projectTitle,
			Description: projectDescription,
			Link:        &projectLink,
			Image:       &projectImageURL,
		}

		var upload *services.ImageUpload
		if projectImageFile != "" {
			f, err := os.Open(projectImageFile)
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			upload = &services.ImageUpload{
				Filename: filepath.Base(projectImageFile),
				Body:     f,
				Size:     info.Size(),
			}
		}

		created, err := app.projects.Create(cmd.Context(), project, upload)
		if err != nil {
			return err
		}
		cmd.Printf("created project %d\n", created.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with their comment counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openAdminApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		summaries, err := app.projects.Summaries(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCOMMENTS\tLINK")
		for _, p := range summaries {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", p.ID, p.Title, p.CommentCount, p.LinkURL())
		}
		return tw.Flush()
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}

		app, err := openAdminApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.projects.Delete(cmd.Context(), id); err != nil {
			return err
		}
		cmd.Printf("deleted project %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectDeleteCmd)

	projectAddCmd.Flags().StringVar(&projectTitle, "title", "", "project title")
	projectAddCmd.Flags().StringVar(&projectDescription, "description", "", "short description")
	projectAddCmd.Flags().StringVar(&projectLink, "link", "", "project URL")
	projectAddCmd.Flags().StringVar(&projectImageURL, "image-url", "", "image URL")
	projectAddCmd.Flags().StringVar(&projectImageFile, "image-file", "", "local image to upload to object storage")
	_ = projectAddCmd.MarkFlagRequired("title")
	_ = projectAddCmd.MarkFlagRequired("description")
	projectAddCmd.MarkFlagsMutuallyExclusive("image-url", "image-file")
}
