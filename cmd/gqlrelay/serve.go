package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"gqlrelay/internal/config"
	"gqlrelay/internal/core/engine"
	"gqlrelay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gqlrelay proxy",
	Long:  `Serve the configured middleware chain as a local GraphQL endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime("")
		if err != nil {
			return err
		}
		defer log.Sync()

		stopTracing, err := initTracing(cfg, nil, log)
		if err != nil {
			return err
		}
		defer stopTracing()

		pipeline, err := buildPipeline(cfg, log)
		if err != nil {
			return err
		}

		writeTimeout, err := proxyWriteTimeout(cfg)
		if err != nil {
			return err
		}

		proxy := server.NewProxy(pipeline, cfg.Server.ForwardHeaders, log.Named("proxy"))
		srv := server.New(cfg.Addr(), server.NewRouter(proxy, log), log, server.WithWriteTimeout(writeTimeout))
		log.Debug("proxy write timeout", zap.Duration("write_timeout", writeTimeout))
		return srv.Start()
	},
}

// writeTimeoutSlack covers the work around the upstream dispatch
const writeTimeoutSlack = 5 * time.Second

// proxyWriteTimeout returns server.write_timeout, or the worst-case dispatch
// time of the configured chain plus slack. An unbounded endpoint timeout means
// no write timeout.
func proxyWriteTimeout(cfg *config.Config) (time.Duration, error) {
	if cfg.Server.WriteTimeout > 0 {
		return cfg.Server.WriteTimeout, nil
	}
	budget, err := engine.RequestBudget(cfg.Engine(), cfg.Endpoint.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid middleware config: %w", err)
	}
	if budget == 0 {
		return 0, nil
	}
	return budget + writeTimeoutSlack, nil
}

func SetupServeCmd() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Server port")
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "Server host")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}
