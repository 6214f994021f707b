// Package config provides centralized configuration management for the NMES
// analysis pipeline. It handles loading configuration from multiple sources,
// validation, and path resolution for every file the pipeline reads or writes.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. config.yaml / configs/config.yaml
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern NMES_* for namespacing:
//
//	NMES_LOGGING_LEVEL=debug
//	NMES_PATHS_INPUT_WORKBOOK=pilot.xlsx
//	NMES_ANALYSIS_CONFIDENCE_LEVEL=0.90
//
// # Path Management
//
// The Paths type is the single source of truth for the on-disk layout: the
// input workbook, the tables and figures output directories, the log
// directory, and the well-known figure files the compositor consumes.
//
//	paths := config.NewPaths(baseDir, cfg.Paths)
//	if err := paths.EnsureDirectories(); err != nil { ... }
package config
