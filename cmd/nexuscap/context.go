package main

import (
	"fmt"

	"nexuscap/internal/config"
)

// commandContext resolves configuration once per invocation and shares it
// across subcommands.
type commandContext struct {
	baseDirFlag *string
	cfg         *config.Config
}

func newCommandContext(baseDirFlag *string) *commandContext {
	return &commandContext{baseDirFlag: baseDirFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.baseDirFlag != nil && *c.baseDirFlag != "" {
		cfg.BaseDir = *c.baseDirFlag
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
	}
	c.cfg = cfg
	return cfg, nil
}
