package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depthfeed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.Listen != ":7100" || cfg.Hub.Levels != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg.Hub)
	}
	if cfg.KafkaEnabled() {
		t.Fatal("kafka must be off by default")
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeFile(t, `
hub:
  listen: ":9000"
  max_backoff: 2s
exchange:
  symbols: [AAPL]
kafka:
  brokers: [k1:9092]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Hub.Listen)
	}
	if cfg.Hub.MaxBackoff != 2*time.Second {
		t.Errorf("max backoff = %v", cfg.Hub.MaxBackoff)
	}
	if cfg.Hub.RecvBufferSize != 4096 {
		t.Errorf("unset field lost its default: %d", cfg.Hub.RecvBufferSize)
	}
	if len(cfg.Exchange.Symbols) != 1 || !cfg.KafkaEnabled() {
		t.Errorf("unexpected exchange/kafka: %+v %+v", cfg.Exchange, cfg.Kafka)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEPTHFEED_UPSTREAM", "feed:7000")
	t.Setenv("DEPTHFEED_KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.Upstream != "feed:7000" {
		t.Errorf("upstream = %q", cfg.Hub.Upstream)
	}
	if strings.Join(cfg.Kafka.Brokers, "|") != "a:9092|b:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, `
hub:
  levels: 0
exchange:
  symbols: []
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"levels", "symbol"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "hub: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
