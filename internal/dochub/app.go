package dochub

import (
	"github.com/kart-io/dochub/pkg/app"
)

const (
	appName        = "dochub"
	appDescription = `Document Hub Service

A document orchestration service built around a vector knowledge base.

This server provides:
  - Per-user document ingestion with vector embeddings
  - RAG-based question answering with model fallback
  - Semantic file relevance checks`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}
