// Package config handles tile updater configuration loading and management.
package config

// Config holds all tile updater settings.
type Config struct {
	VirtualTexture VirtualTextureConfig `yaml:"virtual_texture"`
	Decal          DecalConfig          `yaml:"decal"`
	Pool           PoolConfig           `yaml:"pool"`
	Terrain        TerrainConfig        `yaml:"terrain"`
	Window         WindowConfig         `yaml:"window"`
	Run            RunConfig            `yaml:"run"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// VirtualTextureConfig describes the page layout of the persistent layers.
type VirtualTextureConfig struct {
	ColorResolution  int `yaml:"color_resolution"`  // Albedo/normal/surface tile size in texels
	HeightResolution int `yaml:"height_resolution"` // Height tile size in texels
}

// DecalConfig selects the geometry drawn by the two capture passes.
type DecalConfig struct {
	DecalTag        string `yaml:"decal_tag"`
	DisplacementTag string `yaml:"displacement_tag"`
	QueueMin        int    `yaml:"queue_min"`
	QueueMax        int    `yaml:"queue_max"`
	HeightClear     string `yaml:"height_clear"` // "zero" or "preserve"
}

// PoolConfig bounds the transient surface pool.
type PoolConfig struct {
	MaxLive     int `yaml:"max_live"`
	MaxBudgetMB int `yaml:"max_budget_mb"`
}

// TerrainConfig holds the height interpretation of the terrain data provider.
type TerrainConfig struct {
	HeightScale  float32 `yaml:"height_scale"`
	HeightOffset float32 `yaml:"height_offset"`
}

// WindowConfig holds settings for the hidden window hosting the GL context.
type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	Debug  bool `yaml:"debug"`
}

// RunConfig holds settings for the vtdecal command.
type RunConfig struct {
	Backend   string `yaml:"backend"` // "soft" or "gl"
	Frames    int    `yaml:"frames"`
	OutputDir string `yaml:"output_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		VirtualTexture: VirtualTextureConfig{
			ColorResolution:  256,
			HeightResolution: 256,
		},
		Decal: DecalConfig{
			DecalTag:        "TerrainDecal",
			DisplacementTag: "TerrainDisplacement",
			QueueMin:        1000,
			QueueMax:        5000,
			HeightClear:     "zero",
		},
		Pool: PoolConfig{
			MaxLive:     16,
			MaxBudgetMB: 64,
		},
		Terrain: TerrainConfig{
			HeightScale:  1,
			HeightOffset: 0,
		},
		Window: WindowConfig{
			Width:  64,
			Height: 64,
		},
		Run: RunConfig{
			Backend:   "soft",
			Frames:    1,
			OutputDir: "out",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
