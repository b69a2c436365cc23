// wades — host-resident application behavior anomaly surveillance daemon.
//
// Runs the sampler/detector pipeline on a single shared cadence and serves
// the query interface over a plain-text loopback stream and, optionally,
// as MCP tools over stdio.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/silvs110/wades/internal/controller"
	"github.com/silvs110/wades/internal/detector"
	"github.com/silvs110/wades/internal/logging"
	"github.com/silvs110/wades/internal/observer"
	"github.com/silvs110/wades/internal/probe"
	"github.com/silvs110/wades/internal/query"
	"github.com/silvs110/wades/internal/sampler"
	"github.com/silvs110/wades/internal/store"
	"github.com/silvs110/wades/internal/wadesconfig"
)

var version = "0.1.0"

func main() {
	var configPath string
	var mcpStdio bool

	rootCmd := &cobra.Command{
		Use:     "wades",
		Short:   "Application behavior anomaly surveillance daemon",
		Version: version,
		Long: `wades samples every running application's resource usage on a fixed
cadence, models its historical behavior with Tukey-fence and
frequency-histogram scoring, and flags deviations as anomalies.

Run "wades run" to start the daemon, then query it from another
terminal with "wades modelled apps", "wades abnormal apps", or
"wades modeller status".`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sampling/detection daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath, mcpStdio)
		},
	}
	runCmd.Flags().BoolVar(&mcpStdio, "mcp-stdio", false, "also serve the query interface as MCP tools over stdio")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startDaemon(configPath)
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Pause detection on a running daemon (the process keeps running)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopDaemon(configPath)
		},
	}

	modelledCmd := &cobra.Command{
		Use:   "modelled",
		Short: "Inspect the set of currently modelled applications",
	}
	modelledAppsCmd := &cobra.Command{
		Use:   "apps",
		Short: "List every application WADES currently has a profile for",
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAndPrint(configPath, "modelled apps")
		},
	}
	modelledCmd.AddCommand(modelledAppsCmd)

	var history bool
	abnormalCmd := &cobra.Command{
		Use:   "abnormal",
		Short: "Inspect applications flagged anomalous",
	}
	abnormalAppsCmd := &cobra.Command{
		Use:   "apps",
		Short: "List applications flagged anomalous in the most recent cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history {
				return queryAndPrint(configPath, "abnormal apps --history")
			}
			return queryAndPrint(configPath, "abnormal apps")
		},
	}
	abnormalAppsCmd.Flags().BoolVar(&history, "history", false, "include the full anomaly log with cycle-over-cycle diffs")
	abnormalCmd.AddCommand(abnormalAppsCmd)

	modellerCmd := &cobra.Command{
		Use:   "modeller",
		Short: "Control the pipeline controller's pause state",
	}
	modellerCmd.AddCommand(
		&cobra.Command{
			Use:   "pause",
			Short: "Pause detection scheduling (sampling continues)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return queryAndPrint(configPath, "modeller pause")
			},
		},
		&cobra.Command{
			Use:   "continue",
			Short: "Resume detection scheduling",
			RunE: func(cmd *cobra.Command, args []string) error {
				return queryAndPrint(configPath, "modeller continue")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report the controller's current state",
			RunE: func(cmd *cobra.Command, args []string) error {
				return queryAndPrint(configPath, "modeller status")
			},
		},
	)

	rootCmd.AddCommand(runCmd, startCmd, stopCmd, modelledCmd, abnormalCmd, modellerCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runDaemon assembles the full pipeline — store, prober, sampler,
// detector, controller — and blocks serving the query interface until
// the controller's Run returns (on SIGINT/SIGTERM or ctx cancellation).
func runDaemon(configPath string, mcpStdio bool) error {
	cfg, err := wadesconfig.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	root := logging.New(logCfg)

	st, err := store.Open(cfg.StoreRoot, cfg.TimestampLayout)
	if err != nil {
		return fmt.Errorf("wades: opening store: %w", err)
	}

	tracker := observer.NewTracker()
	prober := probe.New(cfg.ProbeSettle, tracker)
	smp := sampler.New(prober, st, logging.Component(root, "sampler"))
	det := detector.New(cfg)
	ctrl := controller.New(cfg, smp, det, st, tracker, logging.Component(root, "controller"))
	handler := query.New(ctrl, st)

	// The controller installs its own SIGINT/SIGTERM handling (see
	// internal/controller.Run), so the background listeners here just
	// share its context and get torn down via its cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.QueryBindAddress, cfg.QueryPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("wades: listening on %s: %w", addr, err)
	}
	defer ln.Close()

	queryLog := logging.Component(root, "query")
	srv := query.NewServer(handler, queryLog)
	go func() {
		if err := srv.Serve(ln); err != nil {
			queryLog.Info().Err(err).Msg("query listener stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	if mcpStdio {
		adapter := query.NewMCPAdapter(handler, version)
		go func() {
			if err := adapter.Serve(ctx, os.Stdin, os.Stdout); err != nil {
				queryLog.Info().Err(err).Msg("mcp adapter stopped")
			}
		}()
	}

	root.Info().Str("addr", addr).Dur("period", cfg.EffectivePeriod()).Msg("wades daemon starting")
	err = ctrl.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// startDaemon launches "wades run" as a detached background process.
// WADES has no installed service manager integration, so start/stop is a
// thin process-lifecycle shim rather than full PID-file/supervisor
// management.
func startDaemon(configPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("wades: starting daemon: %w", err)
	}
	fmt.Printf("wades daemon started, pid %d\n", cmd.Process.Pid)
	return cmd.Process.Release()
}

// stopDaemon asks the running daemon to pause detection and prints its
// reply; the daemon process and its sampler keep running. It does not send
// a kill signal, since no PID file is kept (the start shim
// launches the process but does not track it beyond launch — operators
// supervising wades for real should run it under systemd or an
// equivalent).
func stopDaemon(configPath string) error {
	return queryAndPrint(configPath, "modeller pause")
}

// queryAndPrint dials the query interface's loopback listener, sends one
// line, and pretty-prints the JSON response.
func queryAndPrint(configPath, line string) error {
	cfg, err := wadesconfig.Load(configPath)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", cfg.QueryBindAddress, cfg.QueryPort)

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("wades: connecting to %s: %w (is the daemon running?)", addr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, line); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return fmt.Errorf("wades: no response from daemon")
	}

	var raw interface{}
	if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
		fmt.Println(scanner.Text())
		return nil
	}
	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		fmt.Println(scanner.Text())
		return nil
	}
	fmt.Println(string(pretty))
	return nil
}
