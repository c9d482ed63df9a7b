package cmd

import (
	"fmt"
	"net/http"

	"basecfg/internal/model"

	"github.com/spf13/cobra"
)

var basesCmd = &cobra.Command{
	Use:   "bases",
	Short: "List configured bases",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Bases    []model.BaseSnapshot `json:"bases"`
			Selected string               `json:"selected"`
		}
		if err := callServer(http.MethodGet, "/bases", nil, &result); err != nil {
			return err
		}

		if len(result.Bases) == 0 {
			fmt.Println("no bases configured")
			return nil
		}

		fmt.Printf("  %-16s %-24s %-5s %-12s %-6s %-6s %s\n",
			"TAG", "TITLE", "KIND", "CLOUD", "KEEP", "CLOUD", "DISABLED")

		for _, b := range result.Bases {
			marker := " "
			if b.Tag == result.Selected {
				marker = "*"
			}
			cloud := b.CloudKind
			if cloud == "" {
				cloud = "-"
			}
			fmt.Printf("%s %-16s %-24s %-5s %-12s %-6d %-6d %t\n",
				marker, b.Tag, b.Title, b.BackupKind, cloud, b.KeepCopies, b.CloudKeepCopies, b.Disabled)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(basesCmd)
}
