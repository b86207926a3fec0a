package cmd

import (
	"context"
	"time"

	"github.com/AzielCF/az-post/application"
	globalConfig "github.com/AzielCF/az-post/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch cycle and exit",
	Long: `Selects every due pending post and publishes it, then exits.
Useful for cron-style deployments that do not keep the rest server running.`,
	Run: runDispatchOnce,
}

func init() {
	dispatchCmd.Flags().String("user", "", "restrict the cycle to one user id")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatchOnce(cmd *cobra.Command, _ []string) {
	userID, _ := cmd.Flags().GetString("user")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer StopApp()

	dispatcher = application.NewDispatcher(
		repo, repo, repo, registry, pool, vkClient, nil, globalConfig.Global.Dispatch,
	)

	result, err := dispatcher.RunCycle(ctx, userID, time.Now())
	if err != nil {
		logrus.Fatalf("dispatch cycle failed: %v", err)
	}

	logrus.Infof("[DISPATCH] Done: %d succeeded, %d failed", result.Succeeded, result.Failed)
}
