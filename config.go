package shelfatlas

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// MaxPageSize bounds atlas page dimensions.
const MaxPageSize = 16384

// Config holds the atlas settings read from the [gfx] table of a TOML file.
type Config struct {
	// TexWidth and TexHeight are the atlas page size in pixels.
	TexWidth  int `toml:"tex-width"`
	TexHeight int `toml:"tex-height"`
	// TexLayerCount is the number of page layers in one texture array.
	TexLayerCount int `toml:"tex-layer-cnt"`
	// BucketSize is the bucket width; TexWidth must be a multiple of it.
	BucketSize int `toml:"tex-bucket-size"`
	// ExcessHeightThreshold is the shelf reuse threshold in (0, 1].
	ExcessHeightThreshold float64 `toml:"tex-excess-height-threshold"`
	// MaxTextureArrays caps how many texture arrays a loader may create.
	// Zero means no limit.
	MaxTextureArrays int `toml:"max-texture-arrays"`
}

type configFile struct {
	Gfx Config `toml:"gfx"`
}

// DefaultConfig returns 1024×1024 pages, 8 layers per array, 128 px buckets
// and a 0.7 excess height threshold.
func DefaultConfig() Config {
	return Config{
		TexWidth:              1024,
		TexHeight:             1024,
		TexLayerCount:         8,
		BucketSize:            128,
		ExcessHeightThreshold: DefaultExcessHeightThreshold,
		MaxTextureArrays:      4,
	}
}

// Validate checks the configuration for values the allocator cannot use.
func (c Config) Validate() error {
	if c.TexWidth <= 0 || c.TexHeight <= 0 || c.TexWidth > MaxPageSize || c.TexHeight > MaxPageSize {
		return fmt.Errorf("%w: %dx%d", ErrPageSize, c.TexWidth, c.TexHeight)
	}
	if c.BucketSize <= 0 || c.TexWidth%c.BucketSize != 0 {
		return fmt.Errorf("%w: width %d, bucket size %d", ErrBucketSize, c.TexWidth, c.BucketSize)
	}
	if !(c.ExcessHeightThreshold > 0 && c.ExcessHeightThreshold <= 1) {
		return fmt.Errorf("%w: got %v", ErrThreshold, c.ExcessHeightThreshold)
	}
	if c.TexLayerCount < 1 || c.TexLayerCount > 256 {
		return fmt.Errorf("shelfatlas: layer count must be in [1, 256], got %d", c.TexLayerCount)
	}
	if c.MaxTextureArrays < 0 {
		return fmt.Errorf("shelfatlas: max texture arrays must not be negative, got %d", c.MaxTextureArrays)
	}
	return nil
}

// ParseConfig decodes TOML data. Keys missing from the [gfx] table keep
// their DefaultConfig values.
func ParseConfig(data []byte) (Config, error) {
	f := configFile{Gfx: DefaultConfig()}
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return Config{}, fmt.Errorf("shelfatlas: failed to parse config: %w", err)
	}
	warnUndecoded(md)
	if err := f.Gfx.Validate(); err != nil {
		return Config{}, err
	}
	return f.Gfx, nil
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (Config, error) {
	f := configFile{Gfx: DefaultConfig()}
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Config{}, fmt.Errorf("shelfatlas: failed to read config %s: %w", path, err)
	}
	warnUndecoded(md)
	if err := f.Gfx.Validate(); err != nil {
		return Config{}, fmt.Errorf("shelfatlas: config %s: %w", path, err)
	}
	return f.Gfx, nil
}

// WriteConfig encodes cfg under a [gfx] table and writes it to path.
func WriteConfig(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(configFile{Gfx: cfg}); err != nil {
		return fmt.Errorf("shelfatlas: failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("shelfatlas: failed to write config %s: %w", path, err)
	}
	return nil
}

func warnUndecoded(md toml.MetaData) {
	if !globalDebug {
		return
	}
	keys := md.Undecoded()
	if len(keys) == 0 {
		return
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	debugf("ignoring unknown config keys: %s", strings.Join(names, ", "))
}
