package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <command>",
	Short: "Run an editor command and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Invoked bool   `json:"invoked"`
			Status  string `json:"status"`
		}

		path := "/commands/" + url.PathEscape(args[0]) + "/invoke?wait=true"
		err := callServer(http.MethodPost, path, nil, &result)
		if se, ok := errors.AsType[*serverError](err); ok && se.Code == http.StatusConflict {
			fmt.Printf("%s is not available right now\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println(result.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)
}
