package main

import (
	"errors"
	"os"

	"github.com/MarcoPoloResearchLab/photodiary/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "photodiary",
		Short:        "Photo diary client: passkey login, uploads and a calendar gallery",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newRegisterCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newStatusCommand(),
		newPhotosCommand(),
		newGalleryCommand(),
		newShowCommand(),
		newUploadCommand(),
		newDevServerCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("base-url", defaults.GetString("server.base_url"), "Diary API base URL")
	cmd.PersistentFlags().Int("timeout-seconds", defaults.GetInt("server.timeout_seconds"), "HTTP request timeout in seconds")
	cmd.PersistentFlags().String("username", defaults.GetString("auth.username"), "Account name for register and login")
	cmd.PersistentFlags().String("origin", defaults.GetString("auth.origin"), "Web origin reported by the authenticator (defaults to base URL)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("dev-server-address", defaults.GetString("devserver.address"), "Listen address of the development API")

	bindFlag(cmd, "server.base_url", "base-url")
	bindFlag(cmd, "server.timeout_seconds", "timeout-seconds")
	bindFlag(cmd, "auth.username", "username")
	bindFlag(cmd, "auth.origin", "origin")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "devserver.address", "dev-server-address")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}
