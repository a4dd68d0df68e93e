package main

import (
	"github.com/sherifabdlnaby/configuro"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging   Logging
	Database  Database
	Valr      Valr
	Repayment Repayment
	Pubsub    Pubsub
	Server    Server
}

type Logging struct {
	Level  string
	Format string
}

type Database struct {
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type Valr struct {
	ApiKey           string
	ApiSecret        string
	BaseURL          string
	FundingAccountID string
	LoanAccountID    string
	Simulation       bool
}

type Repayment struct {
	FiatCurrency    string
	MinReserve      float64
	Interval        string
	ObligationsFile string
}

type Pubsub struct {
	ProjectID string
	TopicID   string
}

type Server struct {
	Port int
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level: "info",
		},
		Database: Database{
			Address:  "localhost:5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Repayment: Repayment{
			FiatCurrency:    "ZAR",
			MinReserve:      1000,
			Interval:        "1h",
			ObligationsFile: "obligations.yml",
		},
		Server: Server{
			Port: 8080,
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
