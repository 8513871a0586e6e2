package config

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Web        WebConfig        `yaml:"web"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Upload     UploadConfig     `yaml:"upload"`
	Security   SecurityConfig   `yaml:"security"`
}

type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// ClassifierConfig describes the remote vision API the verdict comes from.
type ClassifierConfig struct {
	BaseURL        string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	ModelName      string `yaml:"model_name"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type UploadConfig struct {
	Dir string `yaml:"dir"`
}

// SecurityConfig bounds what the image pipeline accepts.
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
}
