// Package config handles configuration loading, validation and hot
// reload for the sign.
//
// Configuration is loaded from a YAML file and validated using struct
// tags. A Config is immutable once loaded; the Store replaces the held
// Config wholesale when the file's modification time changes, and a
// failed reload keeps the previous Config so a half-written file can
// never take the sign down.
package config
