package config

import "os"

type Config struct {
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	HTTPPort    string
	CatalogPath string
	BaseURL     string
	LinkSecret  string
}

func Load() *Config {
	return &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "traflow"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:    getEnv("PORT", "8080"),
		CatalogPath: getEnv("CATALOG_PATH", "config/decision_tree.yaml"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LinkSecret:  getEnv("LINK_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
