package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netcheck-network/netcheck/pkg/cli"
	"github.com/netcheck-network/netcheck/pkg/inventory"
	"github.com/netcheck-network/netcheck/pkg/session"
	"github.com/netcheck-network/netcheck/pkg/suite"
)

type runConfig struct {
	suitePath  string
	invPath    string
	invPathSet bool
	timeout    time.Duration
	lease      bool
	redisAddr  string
	dialer     session.Dialer // test override
}

func newRunCmd() *cobra.Command {
	var (
		invPath string
		timeout time.Duration
		lease   bool
		redis   string
	)

	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a verification suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Ctrl-C cancels the run; open transactions roll back on
			// disconnect.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := executeRun(ctx, runConfig{
				suitePath:  args[0],
				invPath:    invPath,
				invPathSet: cmd.Flags().Changed("inventory"),
				timeout:    timeout,
				lease:      lease,
				redisAddr:  redis,
			})
			if report != nil {
				fmt.Print(renderReport(report))
			}
			if err != nil {
				return err
			}
			// Exit only here: executeRun has already closed sessions and
			// released leases by the time it returns.
			if !report.OK() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&invPath, "inventory", "i", "inventory.yaml", "inventory YAML file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-command timeout")
	cmd.Flags().BoolVar(&lease, "lease", false, "acquire exclusive device leases via Redis")
	cmd.Flags().StringVar(&redis, "redis", "", "Redis address for leases (default $NETCHECK_REDIS_ADDR or 127.0.0.1:6379)")

	return cmd
}

// executeRun loads and runs the suite. Sessions are disconnected and leases
// released before it returns, whatever the outcome.
func executeRun(ctx context.Context, cfg runConfig) (*suite.Report, error) {
	s, err := suite.LoadFile(cfg.suitePath)
	if err != nil {
		return nil, err
	}
	invPath := cfg.invPath
	if !cfg.invPathSet && s.Inventory != "" {
		invPath = s.Inventory
	}
	inv, err := inventory.LoadFile(invPath)
	if err != nil {
		return nil, err
	}
	if err := promptPasswords(inv, s); err != nil {
		return nil, err
	}

	opts := suite.Options{Dialer: cfg.dialer, Timeout: cfg.timeout}
	if cfg.lease {
		lc := inventory.NewLeaseClient(cfg.redisAddr)
		defer lc.Close()
		connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := lc.Connect(connCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		opts.Leases = lc
		opts.Holder = leaseHolder()
	}

	runner := suite.NewRunner(inv, opts)
	defer runner.Close()

	return runner.Run(ctx, s)
}

// leaseHolder identifies this run for device leases.
func leaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "netcheck"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// renderReport colorizes the per-step status markers in the plain summary.
func renderReport(r *suite.Report) string {
	out := r.Summary()
	out = strings.ReplaceAll(out, "[pass]", "["+cli.Green("pass")+"]")
	out = strings.ReplaceAll(out, "[skip]", "["+cli.Yellow("skip")+"]")
	out = strings.ReplaceAll(out, "[FAIL]", "["+cli.Red("FAIL")+"]")
	return out
}
