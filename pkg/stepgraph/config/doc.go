/*
Package config reads settings out of loosely typed maps.

# Overview

Settings arrive as map[string]any from YAML, JSON or the environment.
Config wraps such a map and offers typed accessors that fall back to a
default when a key is missing or holds the wrong type, so callers never
deal with type assertions:

	cfg := config.New(map[string]any{
	    "addr": ":8000",
	    "server": map[string]any{"shutdown_timeout": "10s"},
	})

	addr := cfg.String("addr", ":8080")                               // ":8000"
	grace := cfg.Duration("server.shutdown_timeout", 5*time.Second)   // 10s
	steps := cfg.Int("default_max_steps", 50)                         // 50

Keys may be dotted paths into nested maps. A literal key that contains a
dot wins over the nested lookup.

# Layering

Merge overlays one Config on another, and FromEnv turns prefixed
environment variables into keys, which gives the usual precedence of
defaults, then file, then environment:

	fileCfg, err := config.FromFile("stepgraph.yaml")
	if err != nil {
	    return err
	}
	cfg := fileCfg.Merge(config.FromEnv("STEPGRAPH_", os.Environ()))

# Decoding

Decode fills a tagged struct through mapstructure. Input is weakly typed
("8" decodes into an int) and strings in time.ParseDuration form decode
into time.Duration fields:

	type ServerConfig struct {
	    Addr            string        `mapstructure:"addr"`
	    ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	}

	out := ServerConfig{Addr: ":8000"}
	if err := cfg.Decode(&out); err != nil {
	    return err
	}

Fields whose key is absent keep their current value, so a struct holding
defaults can be decoded into directly.

# Thread Safety

Config is safe for concurrent reads. It never modifies the wrapped map.
*/
package config
