package cmd

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/bgm-tracker/tracker/color"
	"github.com/bgm-tracker/tracker/icon"
	"github.com/bgm-tracker/tracker/secret"
	"github.com/bgm-tracker/tracker/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(secretCmd)
}

// secretCmd manages the bgm.tv app secret in the system keyring.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the bgm.tv application secret stored in the system keyring",
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the bgm.tv application secret",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var value string
		prompt := survey.Password{Message: "bgm.tv app secret:"}
		handleErr(survey.AskOne(&prompt, &value, survey.WithValidator(survey.Required)))
		handleErr(secret.Set(value))

		fmt.Printf("%s secret saved\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	secretCmd.AddCommand(secretDeleteCmd)
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the bgm.tv application secret",
	Aliases: []string{"remove"},
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := secret.Delete()
		if errors.Is(err, secret.ErrNotFound) {
			fmt.Printf("%s no secret stored\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)))
			return
		}
		handleErr(err)

		fmt.Printf("%s secret deleted\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}
