package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"basecfg/internal/model"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <tag> <field> <value>",
	Short: "Change one field of a base",
	Long: `Change one field of a base.

Fields: tag, title, description, backupKind (DT, 1CD), sourcePath,
destinationPath, executablePath, keepCopies, cloudKind (None, Yandex.Disk),
cloudKeepCopies, stopServices, disabled. An empty value clears an option.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, field, value := args[0], args[1], args[2]

		// Fail fast on values the server would reject anyway.
		if _, err := model.ParseField(field, value); err != nil {
			return err
		}

		var snap model.BaseSnapshot
		path := fmt.Sprintf("/bases/%s/fields/%s", url.PathEscape(tag), url.PathEscape(field))
		if err := callServer(http.MethodPut, path, map[string]string{"value": value}, &snap); err != nil {
			return err
		}

		fmt.Printf("%s: %s = %s\n", snap.Tag, field, value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
