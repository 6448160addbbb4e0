package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create a .hearmem.yaml with the default settings in the current
directory. Fails if the file already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("out")
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		if path == "" {
			path = ".hearmem.yaml"
		}
		if !quiet {
			fmt.Printf("Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringP("out", "o", "", "Config file path (default .hearmem.yaml)")
}
