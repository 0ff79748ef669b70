package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bgm-tracker/tracker/color"
	"github.com/bgm-tracker/tracker/constant"
	"github.com/bgm-tracker/tracker/filesystem"
	"github.com/bgm-tracker/tracker/icon"
	"github.com/bgm-tracker/tracker/store"
	"github.com/bgm-tracker/tracker/style"
	"github.com/bgm-tracker/tracker/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func completionWebsites(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return constant.Websites, cobra.ShellCompDirectiveNoFileComp
}

func checkWebsite(website string) {
	if !lo.Contains(constant.Websites, website) {
		handleErr(fmt.Errorf("unknown website %s, expected one of %v", style.Fg(color.Red)(website), constant.Websites))
	}
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

// subjectsCmd manages the website season to bgm.tv subject mappings.
var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Manage website season to bgm.tv subject mappings",
}

func init() {
	subjectsCmd.AddCommand(subjectsImportCmd)
	subjectsImportCmd.Flags().StringP("website", "w", "", "Website the mappings belong to")
	lo.Must0(subjectsImportCmd.MarkFlagRequired("website"))
	lo.Must0(subjectsImportCmd.RegisterFlagCompletionFunc("website", completionWebsites))
}

// subjectsImportCmd loads mappings from a YAML or JSON file.
var subjectsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import mappings from a YAML or JSON list",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		website := lo.Must(cmd.Flags().GetString("website"))
		checkWebsite(website)

		data, err := filesystem.API().ReadFile(args[0])
		handleErr(err)

		subjects, err := store.DecodeSubjects(website, data)
		handleErr(err)

		st := openStore()
		defer util.Ignore(st.Close)

		ctx := context.Background()
		for _, s := range subjects {
			handleErr(st.PutSubject(ctx, s.Website, s.BangumiID, s.Document))
		}

		fmt.Printf(
			"%s imported %s for %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(subjects), "subject", "subjects"),
			style.Fg(color.Purple)(website),
		)
	},
}

func init() {
	subjectsCmd.AddCommand(subjectsGetCmd)
	subjectsGetCmd.SetOut(os.Stdout)
}

// subjectsGetCmd prints one mapping document.
var subjectsGetCmd = &cobra.Command{
	Use:               "get <website> <bangumiID>",
	Short:             "Print the mapping of a season",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completionWebsites,
	Run: func(cmd *cobra.Command, args []string) {
		checkWebsite(args[0])

		st := openStore()
		defer util.Ignore(st.Close)

		doc, err := st.FindSubject(context.Background(), args[0], args[1])
		if errors.Is(err, store.ErrNotFound) {
			handleErr(fmt.Errorf("no subject mapped for %s %s", args[0], args[1]))
		}
		handleErr(err)

		cmd.Println(gjson.ParseBytes(doc).Get("@pretty").String())
	},
}

func init() {
	subjectsCmd.AddCommand(subjectsSearchCmd)
	subjectsSearchCmd.Flags().IntP("limit", "l", 10, "Maximum number of results")
	subjectsSearchCmd.SetOut(os.Stdout)
}

// subjectsSearchCmd finds mappings by title.
var subjectsSearchCmd = &cobra.Command{
	Use:               "search <website> <query>",
	Short:             "Fuzzy search mappings by title",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completionWebsites,
	Run: func(cmd *cobra.Command, args []string) {
		checkWebsite(args[0])

		st := openStore()
		defer util.Ignore(st.Close)

		subjects, err := st.ListSubjects(context.Background(), args[0])
		handleErr(err)

		found := store.SearchSubjects(subjects, args[1])
		if limit := lo.Must(cmd.Flags().GetInt("limit")); limit > 0 && len(found) > limit {
			found = found[:limit]
		}

		if len(found) == 0 {
			fmt.Printf("%s nothing matches %s\n", icon.Get(icon.Info), style.Italic(args[1]))
			return
		}

		for _, s := range found {
			cmd.Printf(
				"%s %s %s\n",
				style.Fg(color.Yellow)(s.BangumiID),
				style.Bold(s.Title()),
				style.Faint("subject "+gjson.GetBytes(s.Document, "subject_id").String()),
			)
		}
	},
}
