/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample projects into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openAdminApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		added, err := app.projects.Seed(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("added %d projects\n", added)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
