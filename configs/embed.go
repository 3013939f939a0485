// Package configs provides the embedded configuration template written by
// `docsearch config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/docsearch/config.yaml)
//  3. Project config (.docsearch.yaml)
//  4. Environment variables (DOCSEARCH_*)
//
// Edit project-config.example.yaml to change the template; it is embedded
// at build time.
package configs

import _ "embed"

// ProjectConfigTemplate is the annotated .docsearch.yaml holding the
// built-in defaults.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
