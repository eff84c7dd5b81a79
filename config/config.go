package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of every depthfeed binary; each one reads the
// sections it needs.
type Config struct {
	Hub struct {
		Listen         string        `yaml:"listen"`
		WebSocket      string        `yaml:"websocket"`
		WebSocketPath  string        `yaml:"websocket_path"`
		Upstream       string        `yaml:"upstream"`
		RecvBufferSize int           `yaml:"recv_buffer_size"`
		SendBufferSize int           `yaml:"send_buffer_size"`
		LoopDepth      int           `yaml:"loop_depth"`
		Levels         int           `yaml:"levels"`
		MaxBackoff     time.Duration `yaml:"max_backoff"`
	} `yaml:"hub"`

	Exchange struct {
		Symbols       []string      `yaml:"symbols"`
		OrderInterval time.Duration `yaml:"order_interval"`
		Seed          int64         `yaml:"seed"`
		BasePrice     int64         `yaml:"base_price"`
	} `yaml:"exchange"`

	Kafka struct {
		Brokers     []string      `yaml:"brokers"`
		TradeTopic  string        `yaml:"trade_topic"`
		OrderTopic  string        `yaml:"order_topic"`
		OrderGroup  string        `yaml:"order_group"`
		FlushPeriod time.Duration `yaml:"flush_period"`
	} `yaml:"kafka"`

	GRPC struct {
		Listen string `yaml:"listen"`
	} `yaml:"grpc"`

	Snapshot struct {
		// Dir is where the pebble store lives; empty keeps it in memory.
		Dir string `yaml:"dir"`
	} `yaml:"snapshot"`
}

// Default returns a config that runs a local exchange on :7000 and a hub on
// :7100 relaying it, with Kafka disabled.
func Default() *Config {
	var c Config

	c.Hub.Listen = ":7100"
	c.Hub.WebSocketPath = "/feed"
	c.Hub.Upstream = "127.0.0.1:7000"
	c.Hub.RecvBufferSize = 4096
	c.Hub.SendBufferSize = 512
	c.Hub.LoopDepth = 1024
	c.Hub.Levels = 5
	c.Hub.MaxBackoff = 5 * time.Second

	c.Exchange.Symbols = []string{"AAPL", "MSFT", "GOOG"}
	c.Exchange.OrderInterval = 50 * time.Millisecond
	c.Exchange.Seed = 1
	c.Exchange.BasePrice = 10000

	c.Kafka.TradeTopic = "depthfeed.trades"
	c.Kafka.OrderTopic = "depthfeed.orders"
	c.Kafka.OrderGroup = "depthfeed-exchange"
	c.Kafka.FlushPeriod = 250 * time.Millisecond

	c.GRPC.Listen = ":7200"
	return &c
}

// Load reads a YAML file over the defaults. An empty path loads only the
// defaults. Environment overrides are applied last, then the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values every binary depends on.
func (c *Config) Validate() error {
	var errs []error

	if c.Hub.Listen == "" && c.Hub.WebSocket == "" {
		errs = append(errs, errors.New("hub needs a tcp or websocket listen address"))
	}
	if c.Hub.RecvBufferSize <= 0 || c.Hub.SendBufferSize <= 0 {
		errs = append(errs, errors.New("buffer sizes must be positive"))
	}
	if c.Hub.LoopDepth <= 0 {
		errs = append(errs, errors.New("loop depth must be positive"))
	}
	if c.Hub.Levels <= 0 {
		errs = append(errs, errors.New("depth levels must be positive"))
	}
	if c.Hub.WebSocket != "" && !strings.HasPrefix(c.Hub.WebSocketPath, "/") {
		errs = append(errs, fmt.Errorf("websocket path %q must start with /", c.Hub.WebSocketPath))
	}
	if len(c.Exchange.Symbols) == 0 {
		errs = append(errs, errors.New("at least one exchange symbol is required"))
	}
	if c.Exchange.OrderInterval < 0 || c.Exchange.BasePrice <= 0 {
		errs = append(errs, errors.New("exchange order interval and base price are invalid"))
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.TradeTopic == "" || c.Kafka.OrderTopic == "") {
		errs = append(errs, errors.New("kafka topics are required when brokers are set"))
	}

	return errors.Join(errs...)
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// overrideWithEnv lets deployments point binaries elsewhere without a file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("DEPTHFEED_LISTEN"); v != "" {
		cfg.Hub.Listen = v
	}
	if v := os.Getenv("DEPTHFEED_UPSTREAM"); v != "" {
		cfg.Hub.Upstream = v
	}
	if v := os.Getenv("DEPTHFEED_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
