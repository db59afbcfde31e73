package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv(configPathEnv)
	cfg := Load()

	if cfg.Retrieval.RetrievalK != 50 {
		t.Errorf("expected retrievalK 50, got %d", cfg.Retrieval.RetrievalK)
	}
	if cfg.Retrieval.FusionK != 20 {
		t.Errorf("expected fusionK 20, got %d", cfg.Retrieval.FusionK)
	}
	if cfg.Retrieval.RerankK != 10 {
		t.Errorf("expected rerankK 10, got %d", cfg.Retrieval.RerankK)
	}
	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("expected rrfK 60, got %d", cfg.Retrieval.RRFK)
	}
	if cfg.Retrieval.RerankTimeout != 10*time.Second {
		t.Errorf("expected rerank timeout 10s, got %v", cfg.Retrieval.RerankTimeout)
	}
	if cfg.Pipeline.MaxIterations != 3 {
		t.Errorf("expected maxIterations 3, got %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.AnalyzeTimeout != 120*time.Second {
		t.Errorf("expected analyze timeout 120s, got %v", cfg.Pipeline.AnalyzeTimeout)
	}
	if cfg.Storage.CorpusPath != "data/corpus.json" {
		t.Errorf("expected default corpus path, got %s", cfg.Storage.CorpusPath)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
retrieval:
  retrievalK: 25
  rrfK: 10
pipeline:
  maxIterations: 2
redis:
  addr: redis.internal:6380
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Retrieval.RetrievalK != 25 {
		t.Errorf("expected retrievalK 25 from file, got %d", cfg.Retrieval.RetrievalK)
	}
	if cfg.Retrieval.RRFK != 10 {
		t.Errorf("expected rrfK 10 from file, got %d", cfg.Retrieval.RRFK)
	}
	if cfg.Pipeline.MaxIterations != 2 {
		t.Errorf("expected maxIterations 2 from file, got %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("expected redis addr from file, got %s", cfg.Redis.Addr)
	}
	// untouched values keep their defaults
	if cfg.Retrieval.FusionK != 20 {
		t.Errorf("expected default fusionK 20, got %d", cfg.Retrieval.FusionK)
	}
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
ai:
  openai:
    apiKey: file-key
redis:
  addr: file-addr:6379
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(openAIKeyEnv, "env-key")
	t.Setenv(redisAddrEnv, "env-addr:6379")
	t.Setenv(corpusPathEnv, "/srv/corpus.jsonl")

	cfg := Load()
	if cfg.AI.OpenAI.APIKey != "env-key" {
		t.Errorf("expected env to win for api key, got %s", cfg.AI.OpenAI.APIKey)
	}
	if cfg.Redis.Addr != "env-addr:6379" {
		t.Errorf("expected env to win for redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Storage.CorpusPath != "/srv/corpus.jsonl" {
		t.Errorf("expected env to win for corpus path, got %s", cfg.Storage.CorpusPath)
	}
}

func TestLoad_BadFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Retrieval.RetrievalK != 50 {
		t.Errorf("expected defaults on parse failure, got retrievalK %d", cfg.Retrieval.RetrievalK)
	}
}
