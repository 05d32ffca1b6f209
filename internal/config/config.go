package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string

	PlatformBaseURL string
	SignServerURL   string
	AccountsFile    string
	UserAgent       string

	RequestTimeout   time.Duration
	CrawlInterval    time.Duration
	MaxRetries       int
	EmptyPageLimit   int
	EnableSubReplies bool

	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PlatformBaseURL: getenv("PLATFORM_BASE_URL", "https://www.zhihu.com"),
		SignServerURL:   getenv("SIGN_SERVER_URL", "http://127.0.0.1:8989"),
		AccountsFile:    getenv("ACCOUNTS_FILE", "./accounts.yaml"),
		UserAgent:       os.Getenv("CRAWLER_USER_AGENT"),

		RequestTimeout:   getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		CrawlInterval:    getenvDuration("CRAWL_INTERVAL", time.Second),
		MaxRetries:       getenvInt("MAX_RETRIES", 3),
		EmptyPageLimit:   getenvInt("EMPTY_PAGE_LIMIT", 3),
		EnableSubReplies: getenvBool("ENABLE_SUB_REPLIES", true),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}
