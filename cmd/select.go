package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var selectNone bool

var selectCmd = &cobra.Command{
	Use:   "select [tag]",
	Short: "Select the base commands act on",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if selectNone {
			if err := callServer(http.MethodDelete, "/selection", nil, nil); err != nil {
				return err
			}
			fmt.Println("selection cleared")
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("tag is required unless --none is given")
		}

		if err := callServer(http.MethodPost, "/selection", map[string]string{"tag": args[0]}, nil); err != nil {
			return err
		}
		fmt.Printf("selected %s\n", args[0])
		return nil
	},
}

func init() {
	selectCmd.Flags().BoolVar(&selectNone, "none", false, "clear the selection")
	rootCmd.AddCommand(selectCmd)
}
