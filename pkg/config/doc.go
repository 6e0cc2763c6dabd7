// Package config loads application configuration from environment
// variables into tagged Go structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// the default .env file is read once per process (if present), then
// env.Parse fills any struct annotated with `env` / `envDefault` tags.
//
//	type IngestConfig struct {
//	    PollInterval time.Duration `env:"INGEST_POLL_INTERVAL" envDefault:"60s"`
//	    Concurrency  int           `env:"INGEST_CONCURRENCY" envDefault:"4"`
//	}
//
//	var cfg IngestConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Sentinel errors ErrParsingConfig and ErrNilPointer can be checked
// with errors.Is.
package config
