// Package config provides centralized configuration management for solarcli.
// It handles loading configuration from multiple sources, validation, and
// path resolution for the raw, cleaned and report directories.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a local .env file
//	2. YAML configuration file (solarcli.yaml, config.yaml, configs/config.yaml)
//	3. Default values from struct tags (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SOLAR_<SECTION>_<FIELD>:
//
//	SOLAR_SERVER_PORT=8080
//	SOLAR_PATHS_DATA_DIR=/srv/solar/data
//	SOLAR_CLEANING_Z_THRESHOLD=3
//	SOLAR_CLEANING_OUTLIER_POLICY=impute
//	SOLAR_ANALYSIS_PRIMARY_METRIC=DNI
//	SOLAR_LOGGING_LEVEL=debug
//
// # Path Management
//
// Paths resolves every directory to an absolute location:
//
//	data/raw        raw station files, one per country
//	data/cleaned    <country>_clean.csv written by the clean step
//	data/reports    cleaning_report.csv, summary.csv, analysis.json, solar_report.xlsx
//	logs            application logs
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	paths, err := cfg.ResolvePaths()
package config
