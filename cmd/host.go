package cmd

import (
	"context"
	stdlog "log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/bridge"
	"github.com/spigell/interview-autofill-host/internal/httpserver"
	"github.com/spigell/interview-autofill-host/internal/logger"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the native messaging host for the browser extension",
	Run: func(_ *cobra.Command, _ []string) {
		runHost()
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().BoolP("start-server", "s", false, "start the HTTP server immediately instead of waiting for a start_server message")
	hostCmd.Flags().IntP("port", "p", bridge.DefaultServerPort, "port for the HTTP server when started with --start-server")

	viper.BindPFlag("host.start-server", hostCmd.Flags().Lookup("start-server"))
	viper.BindPFlag("host.port", hostCmd.Flags().Lookup("port"))
}

// runHost wires the framed channel on stdin/stdout to the HTTP front door
// and runs the message loop until the extension closes the channel.
func runHost() {
	ctx := context.Background()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the native messaging host", zap.String("version", version))

	var opts []bridge.Option
	if config.Host != nil && config.Host.ExchangeTimeout > 0 {
		opts = append(opts, bridge.WithExchangeTimeout(config.Host.ExchangeTimeout))
	}

	server := httpserver.New(log)
	host := bridge.NewHost(os.Stdin, os.Stdout, bridge.NewDispatcher(server, log), log, opts...)
	server.SetBridge(host)

	if viper.GetBool("host.start-server") {
		port := viper.GetInt("host.port")
		if err := server.Start(port); err != nil {
			log.Fatal("starting http server", zap.Int("port", port), zap.Error(err))
		}
	}

	if err := host.Run(ctx); err != nil {
		// Exit non-zero so a supervising process can restart the host.
		log.Fatal("message loop failed", zap.Error(err))
	}

	if err := server.Stop(); err != nil {
		log.Error("stopping http server", zap.Error(err))
	}

	log.Info("native messaging host stopped")
}
