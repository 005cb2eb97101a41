package config

import "os"

// GeminiModels defines which models to use for each task
type GeminiModels struct {
	// Classify is for per-turn intent classification (needs to be fast)
	Classify string `json:"classify"`

	// Suggest is for document-grounded answer suggestions
	Suggest string `json:"suggest"`

	// Summary is for assessment summaries and document analysis
	Summary string `json:"summary"`
}

// AIConfig holds all LLM-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: GeminiModels{
			Classify: getEnvOrDefault("GEMINI_MODEL_CLASSIFY", "gemini-2.0-flash"),
			Suggest:  getEnvOrDefault("GEMINI_MODEL_SUGGEST", "gemini-2.0-flash"),
			Summary:  getEnvOrDefault("GEMINI_MODEL_SUMMARY", "gemini-2.0-flash"),
		},
		TimeoutMS: 10000,
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
