package provider

import (
	"fmt"
	"log/slog"

	"powerarb/internal/config"
)

// NewClient creates a new price provider based on the given name and configuration.
func NewClient(name string, logger *slog.Logger, cfg *config.ProviderConfig) (Client, error) {
	switch name {
	case "entsoe":
		return NewEntsoeClient(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
