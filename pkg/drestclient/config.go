package drestclient

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// envPrefix namespaces the environment variables the loaders read, so
// DREST_ENDPOINT populates the "endpoint" key and DREST_CACHE_TYPE the
// "cache.type" key.
const envPrefix = "DREST"

// LoadConfig reads a YAML configuration file into a drest.Config.
// Environment variables with the DREST_ prefix override file values.
// Configuration is construction-time input only; the loaders never
// write anything back.
func LoadConfig(path string) (*drest.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	applyEnv(v)

	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return configFromViper(v)
}

// LoadConfigFromEnv builds a drest.Config from DREST_-prefixed
// environment variables alone.
func LoadConfigFromEnv() (*drest.Config, error) {
	v := viper.New()
	applyEnv(v)

	return configFromViper(v)
}

func applyEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// configFromViper maps the flat configuration keys onto drest.Config.
// A mocks_file key loads a YAML fixture into Config.Mocks.
func configFromViper(v *viper.Viper) (*drest.Config, error) {
	config := &drest.Config{
		Endpoint:      v.GetString("endpoint"),
		Version:       v.GetString("version"),
		Token:         v.GetString("token"),
		TokenType:     v.GetString("token_type"),
		Cookie:        v.GetString("cookie"),
		CookieName:    v.GetString("cookie_name"),
		Username:      v.GetString("username"),
		Password:      v.GetString("password"),
		LoginEndpoint: v.GetString("login_endpoint"),
		HTTPTimeout:   v.GetDuration("http_timeout"),
		RetryMax:      v.GetInt("retry_max"),
		RetryWaitMin:  v.GetDuration("retry_wait_min"),
		RetryWaitMax:  v.GetDuration("retry_wait_max"),
		Debug:         v.GetBool("debug"),
		UserAgent:     v.GetString("user_agent"),
		SkipTLSVerify: v.GetBool("skip_tls_verify"),
	}

	if cacheType := v.GetString("cache.type"); cacheType != "" {
		config.Cache = cacheConfigFromViper(v, cacheType)
	}

	if mocksFile := v.GetString("mocks_file"); mocksFile != "" {
		mocks, err := LoadMocksFile(mocksFile)
		if err != nil {
			return nil, fmt.Errorf("loading mocks file: %w", err)
		}

		config.Mocks = mocks
	}

	return config, nil
}

func cacheConfigFromViper(v *viper.Viper, cacheType string) *drest.CacheConfig {
	cache := &drest.CacheConfig{
		Type: drest.CacheType(cacheType),
	}

	if maxSize := v.GetInt("cache.memory.max_size"); maxSize > 0 {
		cache.Memory = &drest.MemoryCacheConfig{
			MaxSize:         maxSize,
			CleanupInterval: v.GetString("cache.memory.cleanup_interval"),
		}
	}

	if servers := v.GetStringSlice("cache.nats.servers"); len(servers) > 0 {
		cache.NATS = &drest.NATSKVConfig{
			Servers: servers,
			Bucket:  v.GetString("cache.nats.bucket"),
			TTL:     v.GetDuration("cache.nats.ttl"),
		}
	}

	if ttl := v.GetDuration("cache.ttl"); ttl > 0 {
		options := drest.DefaultCacheOptions()
		options.TTL = ttl
		cache.Options = options
	}

	return cache
}
