package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cinetag/internal/config"
	"cinetag/internal/daemonctl"
	"cinetag/internal/ipc"
	"cinetag/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cinetag daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the cinetag daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping reconciliation...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the cinetag daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonLines(statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Library Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, checkLine("Movie directory", preflight.CheckDirectoryAccess("Movie directory", statusResp.MovieDir), colorize))
			fmt.Fprintln(stdout, checkLine("Tag directory", preflight.CheckDirectoryAccess("Tag directory", statusResp.TagDir), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Services", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, jellyfinLine(cfg, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Tags", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !statusResp.Running {
				fmt.Fprintln(stdout, "Daemon offline, tag summary unavailable")
				return nil
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TagList()
				if err != nil {
					return err
				}
				if len(resp.Tags) == 0 {
					fmt.Fprintln(stdout, "No tags defined")
					return nil
				}
				rows := make([][]string, 0, len(resp.Tags))
				for _, tag := range resp.Tags {
					rows = append(rows, []string{tag.Name, strconv.Itoa(tag.MovieCount), yesNo(tag.Visible)})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Tag", "Movies", "Visible"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func daemonLines(status *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 5)
	if status.Running {
		detail := "Running"
		if status.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", status.PID)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}

	watchKind := statusInfo
	watchDetail := "Disabled"
	if status.Watching {
		watchKind = statusOK
		watchDetail = "Enabled"
	}
	lines = append(lines, renderStatusLine("Watcher", watchKind, watchDetail, colorize))

	syncDetail := "Disabled"
	if status.JellyfinSync {
		syncDetail = "Enabled"
	}
	lines = append(lines, renderStatusLine("Jellyfin sync", statusInfo, syncDetail, colorize))

	if outcome := status.LastOutcome; outcome != nil {
		kind := statusOK
		detail := fmt.Sprintf("%d mutations", outcome.Mutations)
		if outcome.Failures > 0 {
			kind = statusWarn
			detail = fmt.Sprintf("%d mutations, %d failures", outcome.Mutations, outcome.Failures)
		}
		if outcome.FinishedAt != "" {
			detail += " at " + outcome.FinishedAt
		}
		lines = append(lines, renderStatusLine("Last cycle", kind, detail, colorize))
	}
	return lines
}

func jellyfinLine(cfg *config.Config, colorize bool) string {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return renderStatusLine("Jellyfin", statusInfo, "Disabled", colorize)
	}
	return checkLine("Jellyfin", preflight.CheckJellyfinFromConfig(cfg), colorize)
}

func checkLine(label string, result preflight.Result, colorize bool) string {
	kind := statusError
	if result.Passed {
		kind = statusOK
	}
	return renderStatusLine(label, kind, result.Detail, colorize)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if configPath := strings.TrimSpace(*ctx.configFlag); configPath != "" {
			opts.ConfigPath = configPath
		}
	}
	return opts
}
