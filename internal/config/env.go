package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env holds the settings read from the process environment.
type Env struct {
	// Oracle selects the chapter backend: "openrouter", "ollama" or "none".
	Oracle string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
	OpenRouterRPS          float64

	OllamaBaseURL string
	OllamaModel   string

	// RedisAddr enables the oracle response cache when set.
	RedisAddr      string
	OracleCacheTTL time.Duration

	FFmpegPath   string
	FFprobePath  string
	WhisperBin   string
	WhisperModel string

	LogLevel string
}

func LoadEnv() Env {
	return Env{
		Oracle:                 strings.ToLower(envStr("ORACLE", "openrouter")),
		OpenRouterAPIKey:       envStr("OPENROUTER_API_KEY", ""),
		OpenRouterModel:        envStr("OPENROUTER_MODEL", "z-ai/glm-4.5-air:free"),
		OpenRouterBaseURL:      envStr("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		OpenRouterAllowedHosts: envList("OPENROUTER_ALLOWED_HOSTS"),
		OpenRouterRPS:          envFloat("OPENROUTER_RPS", 1),
		OllamaBaseURL:          envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:            envStr("OLLAMA_MODEL", "llama3.2"),
		RedisAddr:              envStr("REDIS_ADDR", ""),
		OracleCacheTTL:         time.Duration(envInt("ORACLE_CACHE_TTL_MINUTES", 24*60)) * time.Minute,
		FFmpegPath:             envStr("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:            envStr("FFPROBE_PATH", "ffprobe"),
		WhisperBin:             envStr("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel:           envStr("WHISPER_MODEL", ".cache/models/ggml-base.bin"),
		LogLevel:               envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits a comma separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
