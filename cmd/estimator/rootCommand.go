package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/morcos/bitcoin/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	client *utils.CachedRPCClient
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "estimator",
	Short: "btcfeeestimator",
	Long:  `Bitcoin fee estimator.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = utils.NewCachedRPCClient(options.btcRPCURL, options.btcRPCUser, options.btcRPCPassword, logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		client.Close()
	},
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("Something went terribly wrong: %v", err)
		os.Exit(-1)
	}
}

var (
	options struct {
		btcRPCURL      string
		btcRPCUser     string
		btcRPCPassword string
	}
)

func init() {
	logger, _ = zap.NewDevelopment(zap.AddStacktrace(zapcore.FatalLevel))

	RootCmd.PersistentFlags().StringVarP(&options.btcRPCURL, "url", "", "13.80.132.186:8332", "bitcoin rpc url")
	RootCmd.PersistentFlags().StringVarP(&options.btcRPCUser, "user", "u", "bitcoinrpc", "bitcoin rpc username")
	RootCmd.PersistentFlags().StringVarP(&options.btcRPCPassword, "password", "p", "eaf672111c88b64fc436f01259dd1812", "bitcoin rpc password")
}
