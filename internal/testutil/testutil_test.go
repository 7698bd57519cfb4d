package testutil

import (
	"context"
	"testing"

	"github.com/chatea-chevere/orderbot/internal/models"
)

func TestFixtureConfigsResolve(t *testing.T) {
	env := NewTestEnv(t)
	ctx := context.Background()

	cfg, err := env.Resolver.Resolve(ctx, "la-pizzeria")
	if err != nil {
		t.Fatalf("failed to resolve category tenant: %v", err)
	}
	if cfg.FlowType != models.FlowCategories {
		t.Errorf("expected categories flow, got %s", cfg.FlowType)
	}
	if len(cfg.Categories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(cfg.Categories))
	}

	cfg, err = env.Resolver.Resolve(ctx, "almuerzos-dona-rosa")
	if err != nil {
		t.Fatalf("failed to resolve sequential tenant: %v", err)
	}
	if cfg.FlowType != models.FlowSequential {
		t.Errorf("expected sequential flow, got %s", cfg.FlowType)
	}
	if len(cfg.Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(cfg.Steps))
	}
}

func TestCreateHTTPRequestWithBody(t *testing.T) {
	req := CreateHTTPRequest(t, "POST", "/webhook", map[string]string{"k": "v"})
	if req.Method != "POST" {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.Body == nil {
		t.Error("expected non-nil body")
	}
}
