package config

import (
	"os"
	"strconv"
	"strings"
)

// Settings holds process-level configuration read from the environment.
// Values the operator wants to change per request live in PromptConfig instead.
type Settings struct {
	ListenAddr string

	OllamaBaseURL  string
	EmbeddingModel string
	InferenceModel string
	LLMTemperature float64

	OpenAIBaseURL string
	OpenAIKey     string

	StoreBackend string // "chromem" or "postgres"
	ChromemPath  string
	ChromemKey   string
	DatabaseURL  string
	DBPassword   string
	DBDebug      bool

	DataPath     string
	PromptConfig string
	ChunkSize    int
	ChunkOverlap int
	CORSOrigins  []string
	LogLevel     string
}

// LoadSettings reads settings from environment variables, falling back to
// the documented defaults for anything unset.
func LoadSettings() *Settings {
	return &Settings{
		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),

		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "mxbai-embed-large"),
		InferenceModel: getEnv("LLM_MODEL", "llama3.1:8b"),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),

		StoreBackend: getEnv("STORE_BACKEND", "chromem"),
		ChromemPath:  getEnv("CHROMEM_PATH", "./chromemdb"),
		ChromemKey:   getEnv("CHROMEM_ENCRYPTION_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://vectoruser@localhost:5433/vectordb"),
		DBPassword:   getEnv("DB_PASSWORD", ""),
		DBDebug:      getEnvBool("DB_DEBUG", false),

		DataPath:     getEnv("DATA_PATH", "data/books"),
		PromptConfig: getEnv("PROMPT_CONFIG", "./configs/prompts.yaml"),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		LogLevel:     getEnv("LOG_LEVEL", "debug"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
