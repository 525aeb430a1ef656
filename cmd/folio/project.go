package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Browse and maintain projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.ListProjects(ctx)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %-30s  %-12s  %s\n", p.ID, p.DisplayName, p.Classification.String, p.ProjectType.String)
		}
		return nil
	},
}

var projectVersionsCmd = &cobra.Command{
	Use:   "versions PROJECT",
	Short: "List a project's versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListProjectVersions")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.ListProjectVersions(ctx, args[0])
		if err != nil {
			return describeError("versions", err)
		}
		for _, v := range versions {
			fmt.Printf("%s  %s  %4d files  %s\n",
				v.ID,
				v.CreatedAt.Format("2006-01-02 15:04:05"),
				v.FileCount,
				shortHash(v.StrictFingerprint),
			)
		}
		return nil
	},
}

var projectFilesCmd = &cobra.Command{
	Use:   "files VERSION",
	Short: "List the files of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListVersionFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListVersionFiles(ctx, args[0])
		if err != nil {
			return describeError("files", err)
		}
		for _, f := range files {
			fmt.Printf("%s  %10d  %s\n", shortHash(f.ContentHash), f.Size, f.Relpath)
		}
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename PROJECT NAME",
	Short: "Change a project's display name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "RenameProject")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RenameProject(ctx, args[0], args[1]); err != nil {
			return describeError("rename", err)
		}
		fmt.Printf("Renamed %s to %q\n", args[0], args[1])
		return nil
	},
}

var projectSetCmd = &cobra.Command{
	Use:   "set PROJECT",
	Short: "Record a project's classification and type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		classification, _ := cmd.Flags().GetString("classification")
		projectType, _ := cmd.Flags().GetString("type")
		ctx := cmd.Context()

		a, err := newApp(ctx, "SetProjectAttributes")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetProjectAttributes(ctx, args[0], classification, projectType); err != nil {
			return describeError("set", err)
		}
		fmt.Printf("Updated %s\n", args[0])
		return nil
	},
}

// blob command
var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Read stored file contents",
}

var blobCatCmd = &cobra.Command{
	Use:   "cat HASH",
	Short: "Write a stored blob to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "CatBlob")
		if err != nil {
			return err
		}
		defer a.Close()

		var pass string
		if a.EncryptionEnabled() {
			pass, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}
		return a.CatBlob(ctx, args[0], pass, os.Stdout)
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectVersionsCmd)
	projectCmd.AddCommand(projectFilesCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectSetCmd)
	projectSetCmd.Flags().String("classification", "", "Project classification")
	projectSetCmd.Flags().String("type", "", "Project type")

	blobCmd.AddCommand(blobCatCmd)
}
