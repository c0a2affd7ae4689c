package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/config"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init [--force] [--dir .]",
	Short: "Write a starter " + config.DefaultFile + " and sample schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			return err
		}
		targets := []struct{ path, kind string }{
			{filepath.Join(initDir, config.DefaultFile), "project"},
			{filepath.Join(initDir, config.SchemaFile), "schema"},
		}
		for _, t := range targets {
			if err := config.WriteTemplate(t.path, t.kind, initForce); err != nil {
				return err
			}
			okColor.Print("wrote ")
			nameColor.Println(t.path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "", false, "overwrite existing files")
	initCmd.Flags().StringVarP(&initDir, "dir", "d", ".", "target directory")
}
