package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/templui/goalpulse/internal/app"
	"github.com/templui/goalpulse/internal/config"
	"github.com/templui/goalpulse/internal/logger"
)

// loadApp builds the same service graph the server uses.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
