package configs

import "embed"

// ProfileDefaults contains the shipped default REPL profile files.
//
//go:embed profiles/*.yaml
var ProfileDefaults embed.FS

// ScriptDefaults contains the shipped input scripts.
//
//go:embed scripts/*.yaml
var ScriptDefaults embed.FS
