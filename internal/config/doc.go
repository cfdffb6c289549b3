// Package config turns declarative configuration into sync targets.
//
// It handles:
//   - The RepoTarget/RemoteSpec data model consumed by the sync engine
//   - YAML task files, with environment variable and ~ expansion
//   - Application settings (worker count, retry policy, logging) via viper
package config
