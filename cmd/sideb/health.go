package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/isaac-evs/side-b/internal/stores"
)

func init() {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the stores directly, or a running server with --api",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL != "" {
				return remoteHealth(cmd.Context(), cmd.OutOrStdout(), apiURL)
			}
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openServices(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			report := svc.Manager.HealthCheckAll(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report[stores.NamePrimary] {
				return fmt.Errorf("primary store unhealthy")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&apiURL, "api", "a", "", "base URL of a running server, e.g. http://localhost:8080")
	rootCmd.AddCommand(cmd)
}

type healthResponse struct {
	Status string          `json:"status"`
	Stores map[string]bool `json:"stores"`
}

func remoteHealth(ctx context.Context, w io.Writer, base string) error {
	var out healthResponse
	resp, err := resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		R().
		SetContext(ctx).
		Get("/api/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if err := printJSON(w, out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("service %s", out.Status)
	}
	return nil
}
