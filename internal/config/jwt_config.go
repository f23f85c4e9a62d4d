package config

import "os"

type JwtConfig struct {
	Secret string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
	}
}

// Enabled reports whether /run requires a bearer token
func (c *JwtConfig) Enabled() bool {
	return c.Secret != ""
}
