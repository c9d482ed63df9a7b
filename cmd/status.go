package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type commandState struct {
	Name    string `json:"name"`
	Async   bool   `json:"async"`
	Enabled bool   `json:"enabled"`
	Running bool   `json:"running"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the editor status and command availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Status       string         `json:"status"`
			Sending      bool           `json:"sending"`
			SelectedBase string         `json:"selected_base"`
			Commands     []commandState `json:"commands"`
		}
		if err := callServer(http.MethodGet, "/status", nil, &result); err != nil {
			return err
		}

		selected := result.SelectedBase
		if selected == "" {
			selected = "-"
		}
		fmt.Printf("status:   %s\n", result.Status)
		fmt.Printf("selected: %s\n", selected)
		fmt.Printf("sending:  %t\n\n", result.Sending)

		fmt.Printf("%-22s %-8s %-8s %s\n", "COMMAND", "ENABLED", "RUNNING", "ASYNC")
		for _, c := range result.Commands {
			fmt.Printf("%-22s %-8t %-8t %t\n", c.Name, c.Enabled, c.Running, c.Async)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
