package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ServiceStatus holds the health information reported by a running server.
type ServiceStatus struct {
	Addr    string `json:"addr"`
	Running bool   `json:"running"`
	Live    bool   `json:"live,omitempty"`
	Ready   bool   `json:"ready,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	metricsAddr string
	jsonOutput  bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of a running Gatehouse server",
		Long:  `Query the liveness and readiness probes of a running Gatehouse server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics/health address of the running server")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := queryServiceStatus(cfg.metricsAddr)

	var output string
	var err error

	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusText(status)
	}

	cmd.Println(output)
	return nil
}

// queryServiceStatus probes the health endpoints of a running server.
func queryServiceStatus(metricsAddr string) ServiceStatus {
	status := ServiceStatus{Addr: metricsAddr}

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + metricsAddr

	liveResp, err := client.Get(base + "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = liveResp.Body.Close() }()

	status.Running = true
	status.Live = liveResp.StatusCode == http.StatusOK

	readyResp, err := client.Get(base + "/healthz/readiness")
	if err != nil {
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	defer func() { _ = readyResp.Body.Close() }()

	status.Ready = readyResp.StatusCode == http.StatusOK
	return status
}

// formatStatusText formats the status as a human-readable summary.
func formatStatusText(status ServiceStatus) string {
	var b strings.Builder

	if !status.Running {
		fmt.Fprintf(&b, "gatehouse (%s): not running", status.Addr)
		if status.Error != "" {
			fmt.Fprintf(&b, " (%s)", status.Error)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "gatehouse (%s): running\n", status.Addr)
	fmt.Fprintf(&b, "  live:  %s\n", yesNo(status.Live))
	fmt.Fprintf(&b, "  ready: %s", yesNo(status.Ready))
	if status.Error != "" {
		fmt.Fprintf(&b, "\n  error: %s", status.Error)
	}
	return b.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status ServiceStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
