package cove

import (
	"cove/internal/auth"
	"cove/internal/storage"
	"cove/internal/store"
)

type Config struct {
	Region        string
	Store         *store.Store
	Admin         storage.AdminClient
	Authenticator auth.AuthEngine
}

type ConfigOption func(*Config)

func WithStore(st *store.Store) ConfigOption {
	return func(cfg *Config) {
		cfg.Store = st
	}
}

func WithAdminClient(admin storage.AdminClient) ConfigOption {
	return func(cfg *Config) {
		cfg.Admin = admin
	}
}

func WithAuthEngine(authenticator auth.AuthEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Authenticator = authenticator
	}
}

func WithRegion(region string) ConfigOption {
	return func(cfg *Config) {
		cfg.Region = region
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
