// Package config provides configuration structures and utilities for
// FactLens. It defines the main options for pipeline execution, the
// artifact store location, scraping behavior, and report generation
// preferences.
package config
