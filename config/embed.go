package config

import _ "embed"

// Default holds the built-in configuration merged under any conf.yaml on disk.
//
//go:embed conf.yaml
var Default []byte
