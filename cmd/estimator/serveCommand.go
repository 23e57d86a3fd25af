package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/morcos/bitcoin/internal/feed"
	"github.com/morcos/bitcoin/internal/feeestimator"
)

var serveOptions struct {
	estimatesFile string
	minRelayFee   float64
}

// serveCommand runs the fee estimator against a live node, replaying
// mempool snapshots into process_block on every poll that sees a new block
// height, the same shape as
// the teacher's now-superseded mempool/naive/btcutil/core commands but
// driving the spec's estimator instead of any of the teacher's own.
var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Runs the fee estimator against a live bitcoind node",
	Long:  `Polls the configured node and, at each new block height, feeds the node's mempool snapshot into the block fee estimator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		estimator := feeestimator.New(logger, serveOptions.minRelayFee)

		if f, err := os.Open(serveOptions.estimatesFile); err == nil {
			err := estimator.ReadFrom(f)
			f.Close()
			if err != nil {
				logger.Warn("ignoring unreadable estimates file", zap.Error(err))
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		go func() {
			<-sigCh
			cancel()
		}()

		f := feed.New(client, estimator, logger, 0)
		if err := f.Run(ctx); err != nil {
			return err
		}

		out, err := os.Create(serveOptions.estimatesFile)
		if err != nil {
			return err
		}
		defer out.Close()
		return estimator.WriteTo(out)
	},
}

func init() {
	serveCommand.Flags().StringVarP(&serveOptions.estimatesFile, "estimates-file", "f", "fee_estimates.dat", "path to the persisted estimator state")
	serveCommand.Flags().Float64VarP(&serveOptions.minRelayFee, "min-relay-fee", "", 1000, "minimum relay fee rate, per kb")
	RootCmd.AddCommand(serveCommand)
}
