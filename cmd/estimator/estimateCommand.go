package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/morcos/bitcoin/internal/feeestimator"
)

var estimateOptions struct {
	estimatesFile string
	target        int
	minRelayFee   float64
	compareLive   bool
}

// estimateCommand answers a one-shot fee/priority query against a
// persisted estimates file, without starting a live poll loop.
var estimateCommand = &cobra.Command{
	Use:   "estimate",
	Short: "Queries a persisted fee estimator for a confirmation target",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(estimateOptions.estimatesFile)
		if err != nil {
			return err
		}
		defer f.Close()

		estimator := feeestimator.New(logger, estimateOptions.minRelayFee)
		if err := estimator.ReadFrom(f); err != nil {
			return err
		}

		fee := estimator.EstimateFee(estimateOptions.target)
		pri := estimator.EstimatePriority(estimateOptions.target)
		fmt.Printf("target=%d fee_rate=%.2f priority=%.2f\n", estimateOptions.target, fee, pri)

		if estimateOptions.compareLive {
			live, err := client.EstimateSmartFee(int64(estimateOptions.target))
			if err != nil {
				logger.Warn("estimatesmartfee rpc call failed", zap.Error(err))
			} else {
				fmt.Printf("node estimatesmartfee for comparison: %.8f\n", live)
			}
		}
		return nil
	},
}

func init() {
	estimateCommand.Flags().StringVarP(&estimateOptions.estimatesFile, "estimates-file", "f", "fee_estimates.dat", "path to the persisted estimator state")
	estimateCommand.Flags().IntVarP(&estimateOptions.target, "target", "t", 6, "confirmation target, in blocks")
	estimateCommand.Flags().Float64VarP(&estimateOptions.minRelayFee, "min-relay-fee", "", 1000, "minimum relay fee rate, per kb")
	estimateCommand.Flags().BoolVarP(&estimateOptions.compareLive, "compare-live", "", false, "also query the node's own estimatesmartfee for comparison")
	RootCmd.AddCommand(estimateCommand)
}
