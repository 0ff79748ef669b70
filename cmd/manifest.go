package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/bgm-tracker/tracker/color"
	"github.com/bgm-tracker/tracker/icon"
	"github.com/bgm-tracker/tracker/key"
	"github.com/bgm-tracker/tracker/log"
	"github.com/bgm-tracker/tracker/manifest"
	"github.com/bgm-tracker/tracker/style"
	"github.com/bgm-tracker/tracker/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(manifestCmd)

	manifestCmd.PersistentFlags().StringP("package", "p", "", "Path to the package descriptor")
	lo.Must0(viper.BindPFlag(key.ManifestPackage, manifestCmd.PersistentFlags().Lookup("package")))

	manifestCmd.PersistentFlags().Bool("keep-duplicate-grants", false, "Keep repeated @grant entries")
	lo.Must0(viper.BindPFlag(key.ManifestKeepDuplicateGrants, manifestCmd.PersistentFlags().Lookup("keep-duplicate-grants")))
}

// manifestCmd groups the userscript manifest commands.
var manifestCmd = &cobra.Command{
	Use:     "manifest",
	Short:   "Build and maintain the userscript manifest",
	Aliases: []string{"meta"},
}

func manifestOptions() manifest.Options {
	return manifest.Options{KeepDuplicateGrants: viper.GetBool(key.ManifestKeepDuplicateGrants)}
}

func buildManifest() *manifest.Manifest {
	path := viper.GetString(key.ManifestPackage)
	log.Infof("building manifest from %s", path)

	m, err := manifest.FromPackageFile(path, manifestOptions())
	handleErr(err)
	return m
}

func init() {
	manifestCmd.AddCommand(manifestBuildCmd)

	manifestBuildCmd.Flags().StringP("output", "o", "", "File to write the header to, stdout when empty")
	lo.Must0(viper.BindPFlag(key.ManifestOutput, manifestBuildCmd.Flags().Lookup("output")))

	manifestBuildCmd.Flags().BoolP("json", "j", false, "Render the manifest as JSON instead of a userscript header")
	manifestBuildCmd.SetOut(os.Stdout)
}

// manifestBuildCmd renders the manifest from the package descriptor.
var manifestBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the userscript header from the package descriptor",
	Run: func(cmd *cobra.Command, args []string) {
		format := manifest.FormatHeader
		if lo.Must(cmd.Flags().GetBool("json")) {
			format = manifest.FormatJSON
		}

		output := viper.GetString(key.ManifestOutput)
		if output == "" {
			out, err := buildManifest().Render(format)
			handleErr(err)
			_, err = cmd.OutOrStdout().Write(out)
			handleErr(err)
			return
		}

		m, err := manifest.WriteFile(viper.GetString(key.ManifestPackage), output, format, manifestOptions())
		handleErr(err)

		fmt.Printf(
			"%s wrote manifest %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Bold(m.Version),
			output,
		)
	},
}

func init() {
	manifestCmd.AddCommand(manifestCheckCmd)
}

// manifestCheckCmd validates the manifest without writing anything.
var manifestCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the package descriptor and manifest declaration",
	Run: func(cmd *cobra.Command, args []string) {
		m := buildManifest()

		fmt.Printf("%s manifest %s is valid\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Bold(m.Name))
		fmt.Printf("  %s %s\n", style.Faint("version"), m.Version)
		fmt.Printf("  %s %s\n", style.Faint("author "), m.Author)
		fmt.Printf("  %s %s\n", style.Faint("source "), m.Source)
		fmt.Printf(
			"  %s, %s, %s, %s\n",
			util.Quantify(len(m.Match), "match", "matches"),
			util.Quantify(len(m.Require), "require", "requires"),
			util.Quantify(len(m.Grant), "grant", "grants"),
			util.Quantify(len(m.Connect), "connect", "connects"),
		)
	},
}

func init() {
	manifestCmd.AddCommand(manifestBumpCmd)
	manifestBumpCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

// manifestBumpCmd increments the descriptor version.
var manifestBumpCmd = &cobra.Command{
	Use:       "bump [major|minor|patch|X.Y.Z]",
	Short:     "Increment the version in the package descriptor",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{manifest.BumpMajor, manifest.BumpMinor, manifest.BumpPatch},
	Run: func(cmd *cobra.Command, args []string) {
		target := manifest.BumpPatch
		if len(args) == 1 {
			target = args[0]
		}

		path := viper.GetString(key.ManifestPackage)
		pkg, err := manifest.LoadPackage(path)
		handleErr(err)

		next, err := manifest.NextVersion(pkg.Version, target)
		handleErr(err)

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirmed bool
			confirm := survey.Confirm{
				Message: fmt.Sprintf("Bump %s from %s to %s?", path, pkg.Version, next),
				Default: true,
			}
			handleErr(survey.AskOne(&confirm, &confirmed))

			if !confirmed {
				return
			}
		}

		previous, next, err := manifest.BumpVersion(path, next)
		handleErr(err)

		fmt.Printf(
			"%s bumped %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Faint(previous),
			style.Fg(color.Yellow)(next),
		)
	},
}

func init() {
	manifestCmd.AddCommand(manifestSchemaCmd)
	manifestSchemaCmd.SetOut(os.Stdout)
}

// manifestSchemaCmd prints the JSON Schema of the JSON rendering.
var manifestSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the manifest JSON rendering",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(manifest.Schema()))
	},
}
