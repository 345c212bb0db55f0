// Package config loads keyframe settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Default()
//  2. a TOML or YAML file, chosen by extension (Load)
//  3. KEYFRAME_* environment variables (ApplyEnv)
//
// A missing file is not an error. Example TOML:
//
//	[scheduler]
//	flush_delay = "20ms"
//	yield_delay = "0s"
//
//	[logging]
//	level = "debug"
//	prefix = "app"
//
//	[dispatcher]
//	metrics = true
//	recover_from_panic = true
package config
