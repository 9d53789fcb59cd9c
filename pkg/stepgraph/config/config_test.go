package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/config"
)

func TestNew(t *testing.T) {
	assert.False(t, config.New(nil).Has("k"))
	assert.Equal(t, "v", config.New(map[string]any{"k": "v"}).String("k", ""))
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		key  string
		want string
	}{
		{"key exists", map[string]any{"addr": ":9000"}, "addr", ":9000"},
		{"key missing", map[string]any{"other": "x"}, "addr", ":8000"},
		{"empty string", map[string]any{"addr": ""}, "addr", ""},
		{"wrong type", map[string]any{"addr": 9000}, "addr", ":8000"},
		{"nested", map[string]any{"server": map[string]any{"addr": ":7000"}}, "server.addr", ":7000"},
		{"nested yaml map", map[string]any{"server": map[any]any{"addr": ":6000"}}, "server.addr", ":6000"},
		{"literal dotted key wins", map[string]any{"server.addr": "lit", "server": map[string]any{"addr": "nested"}}, "server.addr", "lit"},
		{"nested through scalar", map[string]any{"server": "x"}, "server.addr", ":8000"},
		{"nil map", nil, "addr", ":8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String(tt.key, ":8000"))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want time.Duration
	}{
		{"string", "30s", 30 * time.Second},
		{"complex string", "1h30m", 90 * time.Minute},
		{"int seconds", 60, 60 * time.Second},
		{"int64 seconds", int64(45), 45 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 5 * time.Minute, 5 * time.Minute},
		{"invalid string", "soon", 10 * time.Second},
		{"wrong type", true, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"timeout": tt.val})
			assert.Equal(t, tt.want, cfg.Duration("timeout", 10*time.Second))
		})
	}

	assert.Equal(t, time.Second, config.New(nil).Duration("timeout", time.Second))
}

func TestBool(t *testing.T) {
	cfg := config.New(map[string]any{"on": true, "off": false, "str": "true"})
	assert.True(t, cfg.Bool("on", false))
	assert.False(t, cfg.Bool("off", true))
	assert.True(t, cfg.Bool("missing", true))
	assert.False(t, cfg.Bool("str", false))
}

func TestInt(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want int
	}{
		{"int", 42, 42},
		{"int64", int64(100), 100},
		{"whole float", 50.0, 50},
		{"fractional float", 50.5, 99},
		{"string", "42", 99},
		{"negative", -5, -5},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"n": tt.val})
			assert.Equal(t, tt.want, cfg.Int("n", 99))
		})
	}
}

func TestHasAndSub(t *testing.T) {
	cfg := config.New(map[string]any{
		"redis": map[string]any{"addr": "localhost:6379", "db": 2},
		"addr":  ":8000",
	})

	assert.True(t, cfg.Has("addr"))
	assert.True(t, cfg.Has("redis.addr"))
	assert.False(t, cfg.Has("redis.password"))

	sub := cfg.Sub("redis")
	assert.Equal(t, "localhost:6379", sub.String("addr", ""))
	assert.Equal(t, 2, sub.Int("db", 0))

	assert.False(t, cfg.Sub("addr").Has("addr"))
	assert.False(t, cfg.Sub("missing").Has("addr"))
}

func TestMerge(t *testing.T) {
	base := config.New(map[string]any{
		"addr":  ":8000",
		"store": "memory",
		"redis": map[string]any{"addr": "localhost:6379", "prefix": "stepgraph:"},
	})
	overlay := config.New(map[string]any{
		"store": "redis",
		"redis": map[string]any{"addr": "cache:6379"},
	})

	merged := base.Merge(overlay)
	assert.Equal(t, ":8000", merged.String("addr", ""))
	assert.Equal(t, "redis", merged.String("store", ""))
	assert.Equal(t, "cache:6379", merged.String("redis.addr", ""))
	assert.Equal(t, "stepgraph:", merged.String("redis.prefix", ""))

	// Inputs are untouched.
	assert.Equal(t, "memory", base.String("store", ""))
	assert.Equal(t, "localhost:6379", base.String("redis.addr", ""))
}

type decodeTarget struct {
	Addr            string        `mapstructure:"addr"`
	MaxSteps        int           `mapstructure:"default_max_steps"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug"`
	Origins         []string      `mapstructure:"origins"`
	Redis           struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`
}

func TestDecode(t *testing.T) {
	cfg := config.New(map[string]any{
		"default_max_steps": "25",
		"shutdown_timeout":  "3s",
		"debug":             "true",
		"origins":           "http://a,http://b",
		"redis":             map[string]any{"addr": "cache:6379"},
	})

	out := decodeTarget{Addr: ":8000", MaxSteps: 50}
	require.NoError(t, cfg.Decode(&out))

	assert.Equal(t, ":8000", out.Addr, "absent key keeps its value")
	assert.Equal(t, 25, out.MaxSteps)
	assert.Equal(t, 3*time.Second, out.ShutdownTimeout)
	assert.True(t, out.Debug)
	assert.Equal(t, []string{"http://a", "http://b"}, out.Origins)
	assert.Equal(t, "cache:6379", out.Redis.Addr)
}

func TestDecode_Error(t *testing.T) {
	cfg := config.New(map[string]any{"default_max_steps": "many"})
	var out decodeTarget
	assert.Error(t, cfg.Decode(&out))

	assert.Error(t, cfg.Decode(out), "non-pointer result")
}

func TestFromEnv(t *testing.T) {
	environ := []string{
		"STEPGRAPH_ADDR=:9000",
		"STEPGRAPH_REDIS__ADDR=cache:6379",
		"STEPGRAPH_REDIS__TTL=1h",
		"STEPGRAPH_=ignored",
		"HOME=/root",
		"MALFORMED",
	}
	cfg := config.FromEnv("STEPGRAPH_", environ)

	assert.Equal(t, ":9000", cfg.String("addr", ""))
	assert.Equal(t, "cache:6379", cfg.String("redis.addr", ""))
	assert.Equal(t, time.Hour, cfg.Duration("redis.ttl", 0))
	assert.False(t, cfg.Has("home"))
	assert.False(t, cfg.Has(""))
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte("addr: \":9000\"\ndefault_max_steps: 20\nredis:\n  addr: cache:6379\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.String("addr", ""))
	assert.Equal(t, 20, cfg.Int("default_max_steps", 0))
	assert.Equal(t, "cache:6379", cfg.String("redis.addr", ""))

	_, err = config.FromYAML([]byte("addr: [unclosed"))
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"addr": ":9000", "default_max_steps": 20}`))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.String("addr", ""))
	assert.Equal(t, 20, cfg.Int("default_max_steps", 0))

	_, err = config.FromJSON([]byte(`{"addr":`))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"yaml", write("a.yaml", "addr: \":9000\"\n"), false},
		{"yml upper case", write("b.YML", "addr: \":9000\"\n"), false},
		{"json", write("c.json", `{"addr": ":9000"}`), false},
		{"unsupported", write("d.toml", `addr = ":9000"`), true},
		{"missing", filepath.Join(dir, "missing.yaml"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromFile(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ":9000", cfg.String("addr", ""))
		})
	}
}
