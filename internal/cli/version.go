package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the factgraph version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("factgraph", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
