// Package configs loads knox settings and persists the vault registry.
//
// Settings are layered with koanf:
//
//   - Defaults: the engine defaults from workflows.DefaultConfig
//   - Config file: $XDG_CONFIG_HOME/knox/config.toml (optional)
//   - Environment: KNOX_* variables, nested keys joined with "__"
//
// The merged result is validated with go-playground/validator and converted
// into a workflows.Config by EngineConfig. Sizes accept IEC suffixes such as
// "64MiB".
//
// # Vault Registry
//
// The registry maps vault ids to directories so vaults can be addressed by
// id and found by "vault load" wherever they live. It is stored as TOML in
// the data directory ($XDG_DATA_HOME/knox/registry.toml).
package configs
