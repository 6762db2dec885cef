package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ragcore/internal/ragerrors"
)

// envVarPattern matches ${VAR} and ${VAR:default}, the placeholder syntax
// from the source's ConfigLoader.ENV_VAR_PATTERN (config/loader.py).
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// rawSections is the loosely-typed YAML document shape, kept before
// binding into AppConfig so alias resolution (vector_store/vector_db,
// embeddings/embedding) can run first.
type rawSections map[string]map[string]any

// ConfigPath resolves the YAML file to load per ENVIRONMENT (§6 "ENVIRONMENT
// selects the config file (config/<env>.yaml)"), falling back to
// config/development.yaml then ./config.yaml, matching the source's
// _get_config_path.
func ConfigPath() string {
	if explicit := strings.TrimSpace(os.Getenv("CONFIG_PATH")); explicit != "" {
		return explicit
	}
	env := strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	if env == "" {
		env = "development"
	}
	candidate := filepath.Join("config", env+".yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	dev := filepath.Join("config", "development.yaml")
	if _, err := os.Stat(dev); err == nil {
		return dev
	}
	return "config.yaml"
}

// Load reads and validates an AppConfig from disk, applying `.env`,
// placeholder substitution, alias resolution, and environment overlay, in
// that order (§4.7).
func Load(path string, log zerolog.Logger) (AppConfig, error) {
	_ = godotenv.Load() // best-effort, missing .env is not an error

	raw, err := loadYAMLSections(path, log)
	if err != nil {
		return AppConfig{}, err
	}

	cfg := defaultAppConfig()
	if err := bindSections(&cfg, raw, log); err != nil {
		return AppConfig{}, err
	}
	overlayEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, ragerrors.Configuration("config validation failed", err)
	}
	return cfg, nil
}

func loadYAMLSections(path string, log zerolog.Logger) (rawSections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("config file not found, using defaults + environment overlay")
			return rawSections{}, nil
		}
		return nil, ragerrors.Configuration("read config file", err)
	}

	substituted := substituteEnvVars(string(data), log)

	var doc map[string]map[string]any
	if err := yaml.Unmarshal([]byte(substituted), &doc); err != nil {
		return nil, ragerrors.Configuration("parse YAML config", err)
	}
	if doc == nil {
		doc = map[string]map[string]any{}
	}
	return rawSections(doc), nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:default} in content. A
// required placeholder with no matching environment variable is logged at
// warn level and left in place, matching the source's behavior of
// preserving `${VAR}` verbatim rather than failing the whole load.
func substituteEnvVars(content string, log zerolog.Logger) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := envVarPattern.FindStringSubmatch(match)[1]
		if idx := strings.Index(expr, ":"); idx >= 0 {
			name := strings.TrimSpace(expr[:idx])
			def := strings.TrimSpace(expr[idx+1:])
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			return def
		}
		name := strings.TrimSpace(expr)
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		log.Warn().Str("var", name).Msg("environment variable referenced in config is not set")
		return match
	})
}

// bindSections maps the raw YAML sections onto cfg, applying the
// embeddings/embedding and vector_store/vector_db aliases (§9 Open
// Question resolution).
func bindSections(cfg *AppConfig, raw rawSections, log zerolog.Logger) error {
	remarshal := func(section string, dst any) error {
		data, ok := raw[section]
		if !ok {
			return nil
		}
		b, err := yaml.Marshal(data)
		if err != nil {
			return ragerrors.Configuration(fmt.Sprintf("remarshal section %q", section), err)
		}
		if err := yaml.Unmarshal(b, dst); err != nil {
			return ragerrors.Configuration(fmt.Sprintf("bind section %q", section), err)
		}
		return nil
	}

	if err := remarshal("app", &cfg.App); err != nil {
		return err
	}
	if err := remarshal("database", &cfg.Database); err != nil {
		return err
	}
	if err := remarshal("llm", &cfg.LLM); err != nil {
		return err
	}
	if err := remarshal("retrieval", &cfg.Retrieval); err != nil {
		return err
	}
	if err := remarshal("reranking", &cfg.Reranking); err != nil {
		return err
	}
	if err := remarshal("api", &cfg.API); err != nil {
		return err
	}
	if err := remarshal("uploads", &cfg.Uploads); err != nil {
		return err
	}
	if err := remarshal("redis", &cfg.Redis); err != nil {
		return err
	}
	if err := remarshal("observability", &cfg.Observability); err != nil {
		return err
	}

	// vector_store / vector_db alias.
	if _, ok := raw["vector_store"]; ok {
		if err := remarshal("vector_store", &cfg.VectorStore); err != nil {
			return err
		}
	} else if _, ok := raw["vector_db"]; ok {
		log.Warn().Msg(`config section "vector_db" is a deprecated alias for "vector_store"`)
		if err := remarshal("vector_db", &cfg.VectorStore); err != nil {
			return err
		}
	}

	// embeddings / embedding alias; "embeddings" is canonical.
	if _, ok := raw["embeddings"]; ok {
		if err := remarshal("embeddings", &cfg.Embeddings); err != nil {
			return err
		}
	} else if _, ok := raw["embedding"]; ok {
		log.Warn().Msg(`config section "embedding" is a deprecated alias for "embeddings"`)
		if err := remarshal("embedding", &cfg.Embeddings); err != nil {
			return err
		}
	}

	return nil
}

// overlayEnv applies the §6 environment-variable overrides on top of the
// YAML-bound config, matching the source's _load_env_config/_merge_configs
// (env wins over file).
func overlayEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL")); v != "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PINECONE_API_KEY")); v != "" {
		cfg.VectorStore.PineconeAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PINECONE_ENVIRONMENT")); v != "" {
		cfg.VectorStore.PineconeEnvironment = v
	}
	if v := strings.TrimSpace(os.Getenv("API_HOST")); v != "" {
		cfg.API.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("API_PORT")); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.API.Port = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.API.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_DEBUG")); v != "" {
		cfg.App.Debug = strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(os.Getenv("ENVIRONMENT")); v != "" {
		cfg.App.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_PATH")); v != "" {
		cfg.Observability.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("OTLP_ENDPOINT")); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_URL")); v != "" {
		cfg.VectorStore.Endpoint = v
	}

	applyAPIKeyOverlay(&cfg.LLM.Provider, &cfg.LLM.APIKey)
	applyAPIKeyOverlay(&cfg.Embeddings.Provider, &cfg.Embeddings.APIKey)
	applyAPIKeyOverlay(&cfg.Reranking.Provider, &cfg.Reranking.APIKey)
}

// applyAPIKeyOverlay fills apiKey from the `<PROVIDER>_API_KEY` environment
// variable when the config file left it blank, matching §6's "*_API_KEY
// variables supply secrets".
func applyAPIKeyOverlay(provider, apiKey *string) {
	if *apiKey != "" {
		return
	}
	envKey := strings.ToUpper(*provider) + "_API_KEY"
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*apiKey = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not positive: %s", s)
	}
	return n, nil
}
