package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sboruta/tracker/internal/agent"
	"github.com/sboruta/tracker/internal/capture"
	"github.com/sboruta/tracker/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start tracking and keep syncing until interrupted",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, state, logger, err := loadAgentEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := agent.New(ctx, cfg, state, idleProbe, screenGrabber, logger)
	if err != nil {
		if err == capture.ErrNotAuthenticated {
			return fmt.Errorf("not signed in; run `tracker-agent login` first")
		}
		return err
	}

	return a.Run(ctx)
}

func loadAgentEnv() (*config.AgentConfig, *agent.State, *slog.Logger, error) {
	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	state, err := agent.LoadState(cfg.StateDir)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return cfg, state, logger, nil
}

// idleProbe is the injection point for the platform input-idle hook. The
// portable build has no such hook and reports the system as never idle.
func idleProbe() (time.Duration, error) {
	return 0, nil
}

// screenGrabber is the injection point for the platform screen-capture
// hook. The portable build produces no image, so scheduled captures record
// activity counters only.
func screenGrabber(ctx context.Context) (string, error) {
	return "", nil
}
