package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration lets config files spell timeouts as "30s" in both yaml and toml.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

type ServerConfig struct {
	ListenAddr      string   `yaml:"listen_addr" toml:"listen_addr"`
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	RequestTimeout  Duration `yaml:"request_timeout" toml:"request_timeout"`
}

type AuthConfig struct {
	Token string `yaml:"-" toml:"-"`
	// Disabled skips bearer checks, for local development only
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled" toml:"enabled"`
	PerSecond float64 `yaml:"per_second" toml:"per_second"`
	Burst     int     `yaml:"burst" toml:"burst"`
}

type LogConfig struct {
	Prod  bool   `yaml:"prod" toml:"prod"`
	Level string `yaml:"level" toml:"level"`
}

type ChunkingConfig struct {
	TargetSize int `yaml:"target_size" toml:"target_size"`
	Overlap    int `yaml:"overlap" toml:"overlap"`
}

type RetrievalConfig struct {
	DefaultK       int     `yaml:"default_k" toml:"default_k"`
	SearchDefaultK int     `yaml:"search_default_k" toml:"search_default_k"`
	MaxK           int     `yaml:"max_k" toml:"max_k"`
	ScoreThreshold float32 `yaml:"score_threshold" toml:"score_threshold"`
	FailClosed     bool    `yaml:"fail_closed" toml:"fail_closed"`
	ExcerptLength  int     `yaml:"excerpt_length" toml:"excerpt_length"`
}

type ChatConfig struct {
	MaxHistory      int      `yaml:"max_history" toml:"max_history"`
	SessionIdleTTL  Duration `yaml:"session_idle_ttl" toml:"session_idle_ttl"`
	ReaperInterval  Duration `yaml:"reaper_interval" toml:"reaper_interval"`
	SessionBackend  string   `yaml:"session_backend" toml:"session_backend"`
	SessionStoreTTL Duration `yaml:"session_store_ttl" toml:"session_store_ttl"`
}

type RetryConfig struct {
	Attempts       int      `yaml:"attempts" toml:"attempts"`
	BaseDelay      Duration `yaml:"base_delay" toml:"base_delay"`
	MaxDelay       Duration `yaml:"max_delay" toml:"max_delay"`
	AttemptTimeout Duration `yaml:"attempt_timeout" toml:"attempt_timeout"`
}

type EmbeddingConfig struct {
	Provider      string `yaml:"provider" toml:"provider"`
	Model         string `yaml:"model" toml:"model"`
	Dimensions    int    `yaml:"dimensions" toml:"dimensions"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	Concurrency   int    `yaml:"concurrency" toml:"concurrency"`
	MaxInputChars int    `yaml:"max_input_chars" toml:"max_input_chars"`
}

type GenerationConfig struct {
	Provider     string  `yaml:"provider" toml:"provider"`
	Model        string  `yaml:"model" toml:"model"`
	Temperature  float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens" toml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt" toml:"system_prompt"`
}

type QdrantConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	UseTLS   bool   `yaml:"use_tls" toml:"use_tls"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
	APIKey   string `yaml:"-" toml:"-"`
}

type VectorStoreConfig struct {
	// Backend is one of memory, qdrant, sqlite
	Backend    string       `yaml:"backend" toml:"backend"`
	Collection string       `yaml:"collection" toml:"collection"`
	Qdrant     QdrantConfig `yaml:"qdrant" toml:"qdrant"`
	SQLitePath string       `yaml:"sqlite_path" toml:"sqlite_path"`
}

type RedisConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	Addr     string   `yaml:"addr" toml:"addr"`
	Password string   `yaml:"-" toml:"-"`
	JobTTL   Duration `yaml:"job_ttl" toml:"job_ttl"`
}

type JobsConfig struct {
	BufferLimit          int      `yaml:"buffer_limit" toml:"buffer_limit"`
	RequestsPerNewWorker int64    `yaml:"requests_per_new_worker" toml:"requests_per_new_worker"`
	MaxWorkers           int64    `yaml:"max_workers" toml:"max_workers"`
	MinWorkers           int64    `yaml:"min_workers" toml:"min_workers"`
	IdleWorkerTimeout    Duration `yaml:"idle_worker_timeout" toml:"idle_worker_timeout"`
	JobTimeout           Duration `yaml:"job_timeout" toml:"job_timeout"`
}

type IngestConfig struct {
	UploadDir      string   `yaml:"upload_dir" toml:"upload_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	PageTimeout    Duration `yaml:"page_timeout" toml:"page_timeout"`
	ExtractTimeout Duration `yaml:"extract_timeout" toml:"extract_timeout"`
}

type WatchConfig struct {
	Dir      string   `yaml:"dir" toml:"dir"`
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

type HTTPClientConfig struct {
	MaxIdleConns        int      `yaml:"max_idle_conns" toml:"max_idle_conns"`
	MaxIdleConnsPerHost int      `yaml:"max_idle_conns_per_host" toml:"max_idle_conns_per_host"`
	IdleConnTimeout     Duration `yaml:"idle_conn_timeout" toml:"idle_conn_timeout"`
	Timeout             Duration `yaml:"timeout" toml:"timeout"`
}

// APIKeys never come from files.
type APIKeys struct {
	OpenAI    string `yaml:"-" toml:"-"`
	Google    string `yaml:"-" toml:"-"`
	Anthropic string `yaml:"-" toml:"-"`
}

// Config is built once in main and handed to every constructor by value.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" toml:"rate_limit"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Chunking    ChunkingConfig    `yaml:"chunking" toml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Chat        ChatConfig        `yaml:"chat" toml:"chat"`
	Retry       RetryConfig       `yaml:"retry" toml:"retry"`
	Embedding   EmbeddingConfig   `yaml:"embedding" toml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation" toml:"generation"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Redis       RedisConfig       `yaml:"redis" toml:"redis"`
	Jobs        JobsConfig        `yaml:"jobs" toml:"jobs"`
	Ingest      IngestConfig      `yaml:"ingest" toml:"ingest"`
	Watch       WatchConfig       `yaml:"watch" toml:"watch"`
	HTTPClient  HTTPClientConfig  `yaml:"http_client" toml:"http_client"`
	Keys        APIKeys           `yaml:"-" toml:"-"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":3000",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			RequestTimeout:  Duration(90 * time.Second),
		},
		RateLimit: RateLimitConfig{Enabled: true, PerSecond: 2, Burst: 5},
		Log:       LogConfig{Level: "debug"},
		Chunking:  ChunkingConfig{TargetSize: 1000, Overlap: 200},
		Retrieval: RetrievalConfig{
			DefaultK:       6,
			SearchDefaultK: 5,
			MaxK:           20,
			ExcerptLength:  300,
		},
		Chat: ChatConfig{
			MaxHistory:      10,
			SessionIdleTTL:  Duration(60 * time.Minute),
			ReaperInterval:  Duration(5 * time.Minute),
			SessionBackend:  "memory",
			SessionStoreTTL: Duration(24 * time.Hour),
		},
		Retry: RetryConfig{
			Attempts:       3,
			BaseDelay:      Duration(500 * time.Millisecond),
			MaxDelay:       Duration(8 * time.Second),
			AttemptTimeout: Duration(45 * time.Second),
		},
		Embedding: EmbeddingConfig{
			Provider:      "openai",
			Model:         "text-embedding-3-small",
			Dimensions:    1536,
			BatchSize:     100,
			Concurrency:   4,
			MaxInputChars: 8000,
		},
		Generation: GenerationConfig{
			Provider:     "openai",
			Model:        "gpt-4o-mini",
			Temperature:  0,
			MaxTokens:    1024,
			SystemPrompt: DefaultSystemPrompt,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "memory",
			Collection: "pdf_documents",
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334, PoolSize: 1},
			SQLitePath: "data/vectors.db",
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			JobTTL: Duration(24 * time.Hour),
		},
		Jobs: JobsConfig{
			BufferLimit:          100,
			RequestsPerNewWorker: 10,
			MaxWorkers:           10,
			MinWorkers:           1,
			IdleWorkerTimeout:    Duration(time.Minute),
			JobTimeout:           Duration(10 * time.Minute),
		},
		Ingest: IngestConfig{
			UploadDir:      "temporary_data",
			MaxUploadBytes: 32 << 20,
			PageTimeout:    Duration(10 * time.Second),
			ExtractTimeout: Duration(2 * time.Minute),
		},
		Watch: WatchConfig{Debounce: Duration(500 * time.Millisecond)},
		HTTPClient: HTTPClientConfig{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 25,
			IdleConnTimeout:     Duration(60 * time.Second),
			Timeout:             Duration(120 * time.Second),
		},
	}
}

// Load layers defaults, an optional yaml/toml file and the environment, then validates.
// A missing file is not an error.
func Load(path string) (Config, error) {
	return load(path, false)
}

// LoadLocal is Load for one-shot CLI commands, which serve no HTTP and so need no token.
func LoadLocal(path string) (Config, error) {
	return load(path, true)
}

func load(path string, local bool) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if local {
		cfg.Auth.Disabled = true
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Save writes the config in the format implied by the extension.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config) {
	if os.Getenv(EnvProfile) == ProfileProd {
		cfg.Log.Prod = true
		cfg.Log.Level = "info"
	}
	setString(&cfg.Server.ListenAddr, EnvListenAddr)
	setString(&cfg.Auth.Token, EnvAuthToken)
	setString(&cfg.Keys.OpenAI, EnvOpenAIKey)
	setString(&cfg.Keys.Google, EnvGoogleKey)
	setString(&cfg.Keys.Google, EnvGeminiKey)
	setString(&cfg.Keys.Anthropic, EnvAnthropicKey)
	setString(&cfg.VectorStore.Qdrant.Host, EnvQdrantHost)
	setString(&cfg.VectorStore.Qdrant.APIKey, EnvQdrantAPIKey)
	if port, err := strconv.Atoi(os.Getenv(EnvQdrantPort)); err == nil {
		cfg.VectorStore.Qdrant.Port = port
	}
	if os.Getenv(EnvRedisAddr) != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = os.Getenv(EnvRedisAddr)
	}
	setString(&cfg.Redis.Password, EnvRedisPassword)
	setString(&cfg.Watch.Dir, EnvWatchDirectory)
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Chunking.TargetSize <= 0 {
		errs = append(errs, errors.New("chunking.target_size must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		errs = append(errs, fmt.Errorf("chunking.overlap (%d) must be in [0, target_size)", c.Chunking.Overlap))
	}
	if c.Retrieval.DefaultK <= 0 || c.Retrieval.SearchDefaultK <= 0 {
		errs = append(errs, errors.New("retrieval default k values must be positive"))
	}
	if c.Retrieval.MaxK < c.Retrieval.DefaultK || c.Retrieval.MaxK < c.Retrieval.SearchDefaultK {
		errs = append(errs, errors.New("retrieval.max_k must be at least the default k values"))
	}
	if c.Retrieval.ExcerptLength <= 0 {
		errs = append(errs, errors.New("retrieval.excerpt_length must be positive"))
	}
	if c.Chat.MaxHistory < 0 {
		errs = append(errs, errors.New("chat.max_history must not be negative"))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, errors.New("retry.attempts must be at least 1"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding.dimensions must be positive"))
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.Concurrency <= 0 {
		errs = append(errs, errors.New("embedding batch_size and concurrency must be positive"))
	}
	switch c.Embedding.Provider {
	case "openai", "google":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.Generation.Provider {
	case "openai", "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unknown generation provider %q", c.Generation.Provider))
	}
	switch c.VectorStore.Backend {
	case "memory", "qdrant", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, errors.New("vector_store.collection is required"))
	}
	switch c.Chat.SessionBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Chat.SessionBackend))
	}
	if c.Jobs.MinWorkers < 1 || c.Jobs.MaxWorkers < c.Jobs.MinWorkers {
		errs = append(errs, errors.New("jobs worker bounds are invalid"))
	}
	if !c.Auth.Disabled && c.Auth.Token == "" {
		errs = append(errs, fmt.Errorf("%s is required unless auth.disabled is set", EnvAuthToken))
	}
	return errors.Join(errs...)
}

func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
