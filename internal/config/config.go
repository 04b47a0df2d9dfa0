package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AzureOpenAIConfig holds connection details for an Azure OpenAI resource.
// Deployment names the embedding or chat deployment depending on use.
type AzureOpenAIConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key,omitempty"`
	APIVersion  string `yaml:"api_version"`
	Deployment  string `yaml:"deployment"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string             `yaml:"type"`
	Azure  *AzureOpenAIConfig `yaml:"azure,omitempty"`
	OpenAI *OpenAIConfig      `yaml:"openai,omitempty"`
}

// CompletionConfig selects and configures the chat model.
type CompletionConfig struct {
	Type   string             `yaml:"type"`
	Azure  *AzureOpenAIConfig `yaml:"azure,omitempty"`
	OpenAI *OpenAIConfig      `yaml:"openai,omitempty"`
}

// AzureSearchConfig contains connection details for an Azure AI Search index.
type AzureSearchConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key,omitempty"`
	Index       string `yaml:"index"`
	APIVersion  string `yaml:"api_version"`
	VectorField string `yaml:"vector_field"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key,omitempty"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string             `yaml:"type"`
	Azure  *AzureSearchConfig `yaml:"azure,omitempty"`
	Qdrant *QdrantConfig      `yaml:"qdrant,omitempty"`
}

// IngestConfig names the source document and the intermediate files.
type IngestConfig struct {
	DocumentPath   string  `yaml:"document_path"`
	ChunksPath     string  `yaml:"chunks_path"`
	EmbeddingsPath string  `yaml:"embeddings_path"`
	EmbedRPS       float64 `yaml:"embed_rps"`
}

// RetrievalConfig configures the query path.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Completion  CompletionConfig  `yaml:"completion"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Log         LogConfig         `yaml:"log"`
}

const (
	defaultOpenAIVersion = "2024-02-01"
	defaultSearchVersion = "2023-11-01"
	defaultVectorField   = "content_vector"
)

// Load reads a config from a specified path and applies environment
// overrides. If the file does not exist, defaults are used.
func Load(path string) (*AppConfig, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/wellrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/wellrag/config.yaml and
// returns them. Environment overrides are applied after the file is read
// and are never written back.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	ApplyEnv(cfg, os.LookupEnv)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overlays values from the environment, using the variable names
// of the Azure deployment. Empty variables are ignored.
func ApplyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}
	set := func(dst *string, key string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	embAz := ensureAzureOpenAI(&cfg.Embedder.Azure)
	set(&embAz.Endpoint, "AZURE_OPENAI_ENDPOINT")
	set(&embAz.APIKey, "AZURE_OPENAI_KEY")
	set(&embAz.Deployment, "AZURE_EMBEDDING_DEPLOYMENT")

	chatAz := ensureAzureOpenAI(&cfg.Completion.Azure)
	set(&chatAz.Endpoint, "AZURE_OPENAI_ENDPOINT")
	set(&chatAz.APIKey, "AZURE_OPENAI_KEY")
	set(&chatAz.Deployment, "AZURE_OPENAI_CHAT_MODEL")

	if cfg.VectorStore.Azure == nil {
		cfg.VectorStore.Azure = &AzureSearchConfig{APIVersion: defaultSearchVersion, VectorField: defaultVectorField}
	}
	set(&cfg.VectorStore.Azure.Endpoint, "AZURE_SEARCH_ENDPOINT")
	set(&cfg.VectorStore.Azure.APIKey, "AZURE_SEARCH_KEY")
	set(&cfg.VectorStore.Azure.Index, "AZURE_SEARCH_INDEX")

	set(&cfg.Ingest.DocumentPath, "WELLRAG_PDF_PATH")
	set(&cfg.Ingest.ChunksPath, "WELLRAG_CHUNKS_PATH")
	set(&cfg.Ingest.EmbeddingsPath, "WELLRAG_EMBEDDINGS_PATH")
	set(&cfg.Log.Level, "WELLRAG_LOG_LEVEL")
	if v, ok := get("WELLRAG_TOP_K"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retrieval.TopK = n
		}
	}
}

func ensureAzureOpenAI(p **AzureOpenAIConfig) *AzureOpenAIConfig {
	if *p == nil {
		*p = &AzureOpenAIConfig{APIVersion: defaultOpenAIVersion}
	}
	return *p
}

func readFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wellrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "azure", Azure: &AzureOpenAIConfig{APIVersion: defaultOpenAIVersion, TimeoutSecs: 30}},
		Completion:  CompletionConfig{Type: "azure", Azure: &AzureOpenAIConfig{APIVersion: defaultOpenAIVersion, TimeoutSecs: 60}},
		VectorStore: VectorStoreConfig{Type: "azure", Azure: &AzureSearchConfig{APIVersion: defaultSearchVersion, VectorField: defaultVectorField, TimeoutSecs: 30}},
		Ingest: IngestConfig{
			DocumentPath:   "data/WELL-Building-Standard-wellv2.pdf",
			ChunksPath:     "data/chunks.jsonl",
			EmbeddingsPath: "data/embeddings.jsonl",
		},
		Retrieval: RetrievalConfig{TopK: 3},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Completion.Type == "" {
		cfg.Completion.Type = def.Completion.Type
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	for _, az := range []*AzureOpenAIConfig{cfg.Embedder.Azure, cfg.Completion.Azure} {
		if az != nil && az.APIVersion == "" {
			az.APIVersion = defaultOpenAIVersion
		}
	}
	for _, oa := range []*OpenAIConfig{cfg.Embedder.OpenAI, cfg.Completion.OpenAI} {
		if oa == nil {
			continue
		}
		if oa.BaseURL == "" {
			oa.BaseURL = "https://api.openai.com/v1"
		}
		if oa.APIKeyEnv == "" {
			oa.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.Embedder.OpenAI != nil && cfg.Embedder.OpenAI.Model == "" {
		cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
	}
	if s := cfg.VectorStore.Azure; s != nil {
		if s.APIVersion == "" {
			s.APIVersion = defaultSearchVersion
		}
		if s.VectorField == "" {
			s.VectorField = defaultVectorField
		}
	}
	if cfg.Ingest.DocumentPath == "" {
		cfg.Ingest.DocumentPath = def.Ingest.DocumentPath
	}
	if cfg.Ingest.ChunksPath == "" {
		cfg.Ingest.ChunksPath = def.Ingest.ChunksPath
	}
	if cfg.Ingest.EmbeddingsPath == "" {
		cfg.Ingest.EmbeddingsPath = def.Ingest.EmbeddingsPath
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
