package config

// DefaultConfig returns the configuration used when no file or environment
// overrides are present. The classifier API key has no default on purpose.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  "0.0.0.0",
			Port:  5000,
			Debug: false,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		Classifier: ClassifierConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			ModelName:      "openai/gpt-4o-mini",
			MaxTokens:      50,
			TimeoutSeconds: 30,
		},
		Upload: UploadConfig{
			Dir: "data/uploads",
		},
		Security: SecurityConfig{
			MaxFileSize:    10 * 1024 * 1024,
			MaxPixels:      16777216,
			MaxWidth:       4096,
			MaxHeight:      4096,
			AllowedFormats: []string{"jpeg", "jpg", "png", "gif", "webp"},
		},
	}
}
