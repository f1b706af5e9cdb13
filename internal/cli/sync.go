package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sboruta/tracker/internal/agent"
	"github.com/sboruta/tracker/internal/capture"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle and exit",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, state, logger, err := loadAgentEnv()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := agent.New(ctx, cfg, state, idleProbe, screenGrabber, logger)
	if err != nil {
		if err == capture.ErrNotAuthenticated {
			return fmt.Errorf("not signed in; run `tracker-agent login` first")
		}
		return err
	}
	defer a.Close()

	a.SyncOnce(ctx)
	return nil
}
