// Package config provides configuration management for the snapkeep CLI.
//
// # Configuration File
//
// The default configuration file location is ~/.config/snapkeep/config.yaml.
// A config.yaml in the working directory takes precedence. The file uses
// YAML format with the following structure:
//
//	version: 1
//	destination_root: ~/backups
//	max_versions: 5
//	incremental: true
//	recurse: true
//	include_hidden: false
//	ignore_file: .snapkeepignore
//	workers: 4
//	sources:
//	  - ~/Documents
//	  - ~/notes.txt
//
// Every key can be overridden from the environment with the SNAPKEEP_ prefix,
// for example SNAPKEEP_MAX_VERSIONS=10.
//
// # Loading Configuration
//
// Call [Init] once, then [Load]:
//
//	config.Init()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	settings, err := cfg.Settings()
//
// Loaded configurations are validated automatically; see [Validate].
//
// [Config.Settings] and [Config.Traversal] produce the immutable snapshots a
// backup run receives. The engine never reads configuration itself.
package config
