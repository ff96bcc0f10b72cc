package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-roulette/internal/httpc"
	"github.com/teslashibe/go-roulette/pkg/session"
	"github.com/teslashibe/go-roulette/pkg/web"
)

type dashboardReport struct {
	Status session.Status    `json:"status"`
	Stats  web.StatsResponse `json:"stats"`
}

func newStatusCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session status and statistics of a running dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report, err := fetchReport(ctx, url)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd, report)
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "dashboard base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func fetchReport(ctx context.Context, baseURL string) (dashboardReport, error) {
	base := strings.TrimRight(baseURL, "/")

	var report dashboardReport
	if err := httpc.GetJSON(ctx, base+"/api/status", &report.Status); err != nil {
		return report, fmt.Errorf("fetch status: %w", err)
	}
	if err := httpc.GetJSON(ctx, base+"/api/stats", &report.Stats); err != nil {
		return report, fmt.Errorf("fetch stats: %w", err)
	}
	return report, nil
}

func writeReport(cmd *cobra.Command, r dashboardReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session:     %s (%s)\n", r.Status.ID, r.Status.State)
	if w := r.Status.Wheel; w != nil {
		fmt.Fprintf(out, "wheel:       center (%.0f, %.0f) radius %.0f\n", w.Center.X, w.Center.Y, w.Radius)
	} else {
		fmt.Fprintln(out, "wheel:       not located")
	}
	fmt.Fprintf(out, "frames:      %d (detection rate %.2f)\n", r.Stats.FramesProcessed, r.Stats.DetectionRate)
	fmt.Fprintf(out, "predictions: %d (%d high confidence, average %.2f)\n",
		r.Stats.Total, r.Stats.HighConfidence, r.Stats.AverageConfidence)
	if m := r.Stats.MostPredicted; m != nil {
		fmt.Fprintf(out, "most:        %d %s x%d\n", m.Pocket, m.Color, m.Count)
	}
	return nil
}
