package config

type Config interface {
	EnvConfig
	HTTPConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Store
}

func New() Config {
	return mainConfig{}
}
