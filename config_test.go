package shelfatlas

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig is invalid: %v", err)
	}
}

func TestParseConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[gfx]
tex-width = 2048
tex-bucket-size = 256
`))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.TexWidth != 2048 || cfg.BucketSize != 256 {
		t.Errorf("parsed width %d bucket %d, want 2048 and 256", cfg.TexWidth, cfg.BucketSize)
	}
	if cfg.TexHeight != def.TexHeight || cfg.TexLayerCount != def.TexLayerCount ||
		cfg.ExcessHeightThreshold != def.ExcessHeightThreshold {
		t.Errorf("missing keys lost their defaults: %+v", cfg)
	}
}

func TestParseConfig_AllKeys(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[gfx]
tex-width = 512
tex-height = 256
tex-layer-cnt = 2
tex-bucket-size = 64
tex-excess-height-threshold = 0.5
max-texture-arrays = 0
`))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		TexWidth:              512,
		TexHeight:             256,
		TexLayerCount:         2,
		BucketSize:            64,
		ExcessHeightThreshold: 0.5,
		MaxTextureArrays:      0,
	}
	if cfg != want {
		t.Errorf("ParseConfig = %+v, want %+v", cfg, want)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want error
	}{
		{"bucket not dividing width", "[gfx]\ntex-width = 1000\ntex-bucket-size = 128\n", ErrBucketSize},
		{"threshold zero", "[gfx]\ntex-excess-height-threshold = 0.0\n", ErrThreshold},
		{"threshold too large", "[gfx]\ntex-excess-height-threshold = 1.2\n", ErrThreshold},
		{"page too large", "[gfx]\ntex-height = 32768\n", ErrPageSize},
		{"negative width", "[gfx]\ntex-width = -1\n", ErrPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.toml))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseConfig_BadLayerCount(t *testing.T) {
	for _, n := range []string{"0", "257"} {
		_, err := ParseConfig([]byte("[gfx]\ntex-layer-cnt = " + n + "\n"))
		if err == nil || !strings.Contains(err.Error(), "layer count") {
			t.Errorf("tex-layer-cnt = %s: err = %v", n, err)
		}
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	if _, err := ParseConfig([]byte("[gfx\ntex-width = ")); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if _, err := ParseConfig([]byte("[gfx]\ntex-width = \"wide\"\n")); err == nil {
		t.Fatal("expected error for a string width")
	}
}

func TestConfig_WriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.toml")
	cfg := DefaultConfig()
	cfg.TexWidth = 4096
	cfg.BucketSize = 512
	cfg.ExcessHeightThreshold = 0.85
	cfg.MaxTextureArrays = 2

	if err := WriteConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[gfx]") || !strings.Contains(string(data), "tex-bucket-size") {
		t.Errorf("written config missing table or keys:\n%s", data)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("LoadConfig = %+v, want %+v", got, cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want it to wrap os.ErrNotExist", err)
	}
}
