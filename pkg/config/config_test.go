package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/layout"
	"github.com/matzehuels/lanegrid/pkg/session"
)

func TestDecodeTOML(t *testing.T) {
	cfg, err := Decode([]byte(`
[parse]
comma = ";"
action_prefix = "Step"
multi_delimiters = ["|"]

[layout]
column_x = 100
y_step = 50

[store]
backend = "redis"
redis_addr = "redis:6379"

[server]
addr = ":9090"
`), ".toml")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Parse.ActionPrefix != "Step" || cfg.Parse.HeaderScanRows != 10 {
		t.Errorf("parse = %+v", cfg.Parse)
	}
	opts := cfg.RowOptions()
	if opts.Comma != ';' || len(opts.MultiDelimiters) != 1 || opts.MultiDelimiters[0] != "|" {
		t.Errorf("row options = %+v", opts)
	}
	if cfg.Layout.ColumnX != 100 || cfg.Layout.YStep != 50 || cfg.Layout.ActionWidth != layout.DefaultActionWidth {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.LanePlaceholder != layout.DefaultLanePlaceholder {
		t.Errorf("lane placeholder = %v", cfg.Layout.LanePlaceholder)
	}
	if cfg.Store.Backend != session.BackendRedis || cfg.Store.RedisAddr != "redis:6379" || cfg.Store.MongoDatabase != "lanegrid" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.MaxUploadMiB != 32 {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode([]byte(`
layout:
  sub_action_indent: 0
  canvas_width: 1600
cache:
  disabled: true
  ttl: 1h
`), ".yml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Layout.SubActionIndent != 0 || cfg.Layout.CanvasWidth != 1600 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if !cfg.Cache.Disabled || cfg.CacheTTL() != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Parse.ActionPrefix != "Action" {
		t.Errorf("parse defaults lost: %+v", cfg.Parse)
	}
}

func TestDecodeLayoutZeros(t *testing.T) {
	cfg, err := Decode([]byte("[layout]\nstart_y = 0\ny_step = 0\npin_spacing = 0\n"), ".toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Layout.StartY != 0 || cfg.Layout.YStep != 0 || cfg.Layout.PinSpacing != 0 {
		t.Errorf("layout = %+v, want explicit zeros kept", cfg.Layout)
	}
	if got := cfg.Layout.WithDefaults(); got.StartY != 0 || got.YStep != 0 || got.PinSpacing != 0 {
		t.Errorf("WithDefaults() = %+v", got)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, ext := range []string{".toml", ".yaml"} {
		cfg, err := Decode(nil, ext)
		if err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		if cfg.Server.Addr != Default().Server.Addr {
			t.Errorf("%s: defaults not kept", ext)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
		code errors.Code
	}{
		{"bad toml", "[parse\n", ".toml", errors.ErrCodeParse},
		{"unknown toml key", "[parse]\ncolour = 1\n", ".toml", errors.ErrCodeInvalidInput},
		{"unknown yaml key", "parse:\n  colour: 1\n", ".yaml", errors.ErrCodeParse},
		{"long comma", "[parse]\ncomma = \";;\"\n", ".toml", errors.ErrCodeInvalidInput},
		{"bad ttl", "[cache]\nttl = \"soon\"\n", ".toml", errors.ErrCodeInvalidInput},
		{"bad backend", "[store]\nbackend = \"sqlite\"\n", ".toml", errors.ErrCodeInvalidInput},
		{"wide action", "[layout]\naction_width = 5000\n", ".toml", errors.ErrCodeInvalidInput},
		{"negative step", "[layout]\ny_step = -10\n", ".toml", errors.ErrCodeInvalidInput},
		{"json", "{}", ".json", errors.ErrCodeInvalidFmt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.ext)
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parse.ActionPrefix != Default().Parse.ActionPrefix {
		t.Error("missing file should give defaults")
	}

	path := filepath.Join(dir, "lanegrid.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":1234\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":1234" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("Load(missing) = %v, want IO_ERROR", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	want := Default()
	want.Layout.ColumnX = 42
	data, err := want.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[layout]") {
		t.Errorf("encoded config lacks [layout]:\n%s", data)
	}
	got, err := Decode(data, ".toml")
	if err != nil {
		t.Fatal(err)
	}
	if got.Layout != want.Layout {
		t.Errorf("layout = %+v, want %+v", got.Layout, want.Layout)
	}
}
