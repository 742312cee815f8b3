package cmd

import (
	"fmt"

	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/config"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/preview"
	"github.com/killallgit/webbuilder/pkg/prompt"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

// application is everything a command needs, built from the loaded config.
type application struct {
	cfg       *config.Config
	client    *chat.Client
	workspace *workspace.Workspace
}

// catalogue converts the configured model list.
func catalogue(cfg *config.Config) chat.Catalogue {
	models := make(chat.Catalogue, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, chat.Model{ID: m.ID, Name: name})
	}
	return models
}

// newApplication wires the endpoint client, prompts, preview and workspace.
func newApplication(cfg *config.Config) (*application, error) {
	log := logger.WithComponent("app")

	client, err := chat.NewClientWithTimeout(cfg.Endpoint.BaseURL, cfg.Endpoint.APIKey, cfg.Endpoint.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint client: %w", err)
	}

	builder, err := prompt.NewBuilder(cfg.Generation.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompts: %w", err)
	}

	ws, err := workspace.New(workspace.Options{
		Opener:           client,
		Prompts:          builder,
		Models:           catalogue(cfg),
		Bridge:           preview.NewBridge(preview.NewRenderer(cfg.Preview.Stylesheet)),
		Temperature:      cfg.Generation.Temperature,
		MaxTokens:        cfg.Generation.MaxTokens,
		SelectionContext: cfg.Generation.SelectionContext,
	})
	if err != nil {
		return nil, err
	}

	log.Info("application ready", "endpoint", client.BaseURL(), "models", len(cfg.Models))
	return &application{cfg: cfg, client: client, workspace: ws}, nil
}
