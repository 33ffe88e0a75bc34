package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/config"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Open loads configuration and wires the services for a one-shot command.
func Open() (*config.Config, *Bundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	bundle, err := NewBundle(cfg, log.Logger, BundleOptions{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, bundle, nil
}
