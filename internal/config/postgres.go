package config

type PostgresConfig struct {
	// Url is optional; without it the built-in language limits are used
	Url string
}

func NewPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Url: getEnv("DATABASE_URL", ""),
	}
}

func (c *PostgresConfig) Enabled() bool {
	return c.Url != ""
}
