package config

import (
	"strings"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Env       string
	Debug     bool
	LogPath   string
	SentryDsn string

	Marketplace   MarketplaceConfig
	Api           ApiConfig
	ElasticSearch ElasticSearchConfig
	Aws           AwsConfig
}

type MarketplaceConfig struct {
	Address         string
	Operator        string
	ListFeeRate     uint
	BuyFeeRate      uint
	// ForwardBuyFee pays sellers price plus the buy fee. Off by default so the booked fees stay
	// backed by the marketplace account.
	ForwardBuyFee   bool
	Paused          bool
	ReentryWaitMs   int
	GenesisBalances []string
	GenesisAssets   []string
}

type ApiConfig struct {
	Port    string
	Url     string
	Timeout int
	Retries int
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Token     string
	Region    string
	QueueUrl  string
}

type ElasticSearchConfig struct {
	Enabled          bool
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Username         string
	Password         string
	Aws              bool
	MappingDir       string
	Index            string
	BulkPersistCount int
	Refresh          string
}

// Init loads .env (when present) and the optional CONFIG_FILE, then starts the global logger.
func Init() {
	if err := godotenv.Load(".env"); err != nil {
		zap.L().With(zap.Error(err)).Debug("Config: No .env file loaded")
	}

	viper.AutomaticEnv()
	if file := viper.GetString("CONFIG_FILE"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			zap.L().With(zap.Error(err), zap.String("file", file)).Fatal("Unable to init config")
		}
	}

	initLogger()
}

func initLogger() {
	cfg := Get()
	log.NewLogger(cfg.LogPath, cfg.Debug, cfg.SentryDsn)
}

func Get() *Config {
	viper.AutomaticEnv()

	return &Config{
		Env:       getString("ENV", "prod"),
		Debug:     getBool("DEBUG", false),
		LogPath:   getString("LOG_PATH", "/app/var/log/marketplace.log"),
		SentryDsn: getString("SENTRY_DSN", ""),
		Marketplace: MarketplaceConfig{
			Address:         getString("MARKETPLACE_ADDRESS", ""),
			Operator:        getString("MARKETPLACE_OPERATOR", ""),
			ListFeeRate:     getUint("MARKETPLACE_LIST_FEE_RATE", 0),
			BuyFeeRate:      getUint("MARKETPLACE_BUY_FEE_RATE", 0),
			ForwardBuyFee:   getBool("MARKETPLACE_FORWARD_BUY_FEE", false),
			Paused:          getBool("MARKETPLACE_PAUSED", false),
			ReentryWaitMs:   getInt("MARKETPLACE_REENTRY_WAIT_MS", 1000),
			GenesisBalances: getSlice("MARKETPLACE_GENESIS_BALANCES", make([]string, 0), ","),
			GenesisAssets:   getSlice("MARKETPLACE_GENESIS_ASSETS", make([]string, 0), ","),
		},
		Api: ApiConfig{
			Port:    getString("API_PORT", "8080"),
			Url:     getString("API_URL", "http://localhost:8080"),
			Timeout: getInt("API_TIMEOUT", 10),
			Retries: getInt("API_RETRIES", 3),
		},
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Token:     getString("AWS_SESSION_TOKEN", ""),
			Region:    getString("AWS_REGION", ""),
			QueueUrl:  getString("AWS_QUEUE_URL", ""),
		},
		ElasticSearch: ElasticSearchConfig{
			Enabled:          getBool("ELASTIC_SEARCH_ENABLED", false),
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			Aws:              getBool("ELASTIC_SEARCH_AWS", false),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "./mappings"),
			Index:            getString("ELASTIC_SEARCH_INDEX", "marketplace"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
	}
}

func getString(key string, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}

	val, err := cast.ToIntE(strings.TrimSpace(viper.GetString(key)))
	if err != nil {
		return defaultValue
	}
	return val
}

func getUint(key string, defaultValue uint) uint {
	val := getInt(key, int(defaultValue))
	if val < 0 {
		return defaultValue
	}
	return uint(val)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}

	val, err := cast.ToBoolE(strings.TrimSpace(viper.GetString(key)))
	if err != nil {
		return defaultValue
	}
	return val
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := strings.TrimSpace(getString(key, ""))
	if valStr == "" {
		return defaultVal
	}

	values := make([]string, 0)
	for _, v := range strings.Split(valStr, sep) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
