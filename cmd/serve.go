package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/bgm-tracker/tracker/bgm"
	"github.com/bgm-tracker/tracker/config"
	"github.com/bgm-tracker/tracker/key"
	"github.com/bgm-tracker/tracker/log"
	"github.com/bgm-tracker/tracker/secret"
	"github.com/bgm-tracker/tracker/server"
	"github.com/bgm-tracker/tracker/store"
	"github.com/bgm-tracker/tracker/util"
	"github.com/bgm-tracker/tracker/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// databasePath is the SQLite file the backend and the subject commands share.
func databasePath() string {
	if path := viper.GetString(key.StorePath); path != "" {
		return path
	}
	return where.Database()
}

func openStore() *store.SQLite {
	st, err := store.Open(databasePath())
	handleErr(err)
	return st
}

// appSecret prefers the configured secret and falls back to the keyring.
func appSecret() (string, error) {
	if s := viper.GetString(key.BgmAppSecret); s != "" {
		return s, nil
	}

	s, err := secret.Get()
	if errors.Is(err, secret.ErrNotFound) {
		return "", fmt.Errorf("no bgm.tv app secret, set %s or run \"secret set\"", key.BgmAppSecret)
	}
	return s, err
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Public host used in the OAuth redirect URI")
	lo.Must0(viper.BindPFlag(key.ServerHost, serveCmd.Flags().Lookup("host")))

	serveCmd.Flags().String("protocol", "", "Public protocol used in the OAuth redirect URI")
	lo.Must0(viper.BindPFlag(key.ServerProtocol, serveCmd.Flags().Lookup("protocol")))

	serveCmd.Flags().IntP("port", "P", 0, "Port to listen on")
	lo.Must0(viper.BindPFlag(key.ServerPort, serveCmd.Flags().Lookup("port")))

	serveCmd.Flags().String("db", "", "Path to the SQLite database")
	lo.Must0(viper.BindPFlag(key.StorePath, serveCmd.Flags().Lookup("db")))
}

// serveCmd runs the tracker backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker backend serving OAuth, subject lookups and missing reports",
	Run: func(cmd *cobra.Command, args []string) {
		log.Mirror(os.Stderr)

		handleErr(config.Validate(key.ServerProtocol, viper.GetString(key.ServerProtocol)))
		handleErr(config.Validate(key.ServerHost, viper.GetString(key.ServerHost)))
		handleErr(config.Validate(key.ServerPort, viper.GetInt(key.ServerPort)))
		handleErr(config.Validate(key.ServerMissingLimit, viper.GetInt(key.ServerMissingLimit)))

		appID := viper.GetString(key.BgmAppID)
		if appID == "" {
			handleErr(fmt.Errorf("%s is not set", key.BgmAppID))
		}

		appSecret, err := appSecret()
		handleErr(err)

		callback := fmt.Sprintf("%s://%s/oauth_callback", viper.GetString(key.ServerProtocol), viper.GetString(key.ServerHost))
		client := bgm.New(appID, appSecret, callback)

		st := openStore()
		defer util.Ignore(st.Close)

		srv, err := server.New(st, client, server.WithMissingLimit(viper.GetInt(key.ServerMissingLimit)))
		handleErr(err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.WithFields(log.Fields{
			"callback": callback,
			"database": databasePath(),
		}).Info("starting tracker backend")

		addr := net.JoinHostPort("", strconv.Itoa(viper.GetInt(key.ServerPort)))
		if err := srv.Run(ctx, addr); err != nil {
			handleErr(err)
		}
	},
}
