package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gqlrelay/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gqlrelay",
	Short: "GraphQL client pipeline",
	Long: `gqlrelay sends GraphQL requests through a configurable middleware chain
and can serve the same chain as a local GraphQL proxy.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("url", "", "endpoint URL used when a request carries none")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("endpoint.url", rootCmd.PersistentFlags().Lookup("url"))

	SetupQueryCmd()
	SetupServeCmd()
}

func initConfig() {
	config.Init(cfgFile)
}
