package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/dealkit/core"
)

const sampleYAML = `
engine:
  vector_len: 500
  similar_threshold: 0.9
pipeline:
  name: deals
  nodes:
    - type: noop
    - type: noop
      config:
        n: 3
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML(writeTemp(t, "cfg.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}

	if cfg.Engine.VectorLen != 500 {
		t.Errorf("vector_len = %d, want 500", cfg.Engine.VectorLen)
	}
	if cfg.Engine.SimilarThreshold != 0.9 {
		t.Errorf("similar_threshold = %v, want 0.9", cfg.Engine.SimilarThreshold)
	}
	// Omitted fields are filled with defaults during load.
	if cfg.Engine.ForestSize != core.DefaultForestSize {
		t.Errorf("forest_size = %d, want default %d", cfg.Engine.ForestSize, core.DefaultForestSize)
	}
	if cfg.Engine.Interaction.Activate != 0.6 {
		t.Errorf("activate weight = %v, want 0.6", cfg.Engine.Interaction.Activate)
	}

	if cfg.Pipeline.Name != "deals" {
		t.Errorf("pipeline name = %q, want deals", cfg.Pipeline.Name)
	}
	if len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(cfg.Pipeline.Nodes))
	}
	if cfg.Pipeline.Nodes[1].Config["n"] != 3 {
		t.Errorf("node config n = %v, want 3", cfg.Pipeline.Nodes[1].Config["n"])
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	cfg, err := LoadFromYAML(writeTemp(t, "cfg.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}

	factory := NewNodeFactory()
	factory.Register("noop", func(_ map[string]any) (Node, error) {
		return &passthroughNode{}, nil
	})

	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if len(p.Nodes) != 2 {
		t.Errorf("pipeline nodes = %d, want 2", len(p.Nodes))
	}
}

func TestNodeFactory_UnknownType(t *testing.T) {
	factory := NewNodeFactory()
	if _, err := factory.Build("does-not-exist", nil); err == nil {
		t.Error("expected error for unknown node type")
	}
}

type passthroughNode struct{}

func (n *passthroughNode) Name() string { return "noop" }
func (n *passthroughNode) Kind() Kind   { return KindPostProcess }
func (n *passthroughNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return items, nil
}
