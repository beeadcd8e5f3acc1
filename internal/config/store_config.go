package config

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

type StoreConfig interface {
	GetTokenStore() StoreKind
	GetTokenFile() string
	GetTokenPassphrase() string
	GetRedisAddr() string
	GetRedisDB() int
	GetRedisKey() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetTokenStore() StoreKind {
	switch kind := StoreKind(GetEnv("TOKEN_STORE", string(StoreFile))); kind {
	case StoreMemory, StoreFile, StoreRedis:
		return kind
	default:
		return StoreFile
	}
}

func (Store) GetTokenFile() string {
	return GetEnv("TOKEN_FILE", ".match-tokens")
}

// GetTokenPassphrase is the secret the file store derives its encryption key from.
func (Store) GetTokenPassphrase() string {
	return GetEnv("TOKEN_PASSPHRASE", "")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Store) GetRedisKey() string {
	return GetEnv("REDIS_TOKEN_KEY", "match:credentials")
}
