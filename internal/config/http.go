package config

import "time"

type HttpCfg struct {
	Port            int
	RequestTimeout  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	CorsOrigins     []string
}

func NewHttpCfg() *HttpCfg {
	return &HttpCfg{
		Port:            getIntEnv("HTTP_PORT", 7000),
		RequestTimeout:  getMillisEnv("REQUEST_TIMEOUT_MS", 20*time.Second),
		RateLimitMax:    getIntEnv("RATE_LIMIT_MAX", 100),
		RateLimitWindow: time.Duration(getIntEnv("RATE_LIMIT_WINDOW_SEC", 15*60)) * time.Second,
		CorsOrigins:     getListEnv("CORS_ORIGINS", []string{"*"}),
	}
}
