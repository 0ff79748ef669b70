package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/bgm-tracker/tracker/color"
	"github.com/bgm-tracker/tracker/key"
	"github.com/bgm-tracker/tracker/style"
	"github.com/bgm-tracker/tracker/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(missingCmd)
}

// missingCmd inspects reports of seasons without a mapping.
var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Inspect reports of seasons without a bgm.tv mapping",
}

func init() {
	missingCmd.AddCommand(missingListCmd)
	missingListCmd.Flags().IntP("limit", "l", 0, "Maximum number of reports, defaults to "+key.ServerMissingLimit)
	missingListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	missingListCmd.SetOut(os.Stdout)
}

// missingListCmd prints reports oldest first.
var missingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reported seasons, oldest first",
	Run: func(cmd *cobra.Command, args []string) {
		limit := lo.Must(cmd.Flags().GetInt("limit"))
		if limit <= 0 {
			limit = viper.GetInt(key.ServerMissingLimit)
		}

		st := openStore()
		defer util.Ignore(st.Close)

		reports, err := st.ListMissing(context.Background(), limit)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(reports))
			return
		}

		for _, r := range reports {
			cmd.Printf(
				"%s %s %s\n  %s\n",
				style.Fg(color.Purple)(r.Website),
				style.Fg(color.Yellow)(r.BangumiID),
				style.Bold(r.Title),
				style.Faint(r.Href),
			)
		}
	},
}
