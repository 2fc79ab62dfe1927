package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PASSPORT_REMOVER_BACKEND.
const EnvPrefix = "PASSPORT"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Passport PassportConfig `mapstructure:"passport"`
	Remover  RemoverConfig  `mapstructure:"remover"`
	Sheet    SheetConfig    `mapstructure:"sheet"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size" validate:"gt=0"`
	ScratchDir   string   `mapstructure:"scratch_dir" validate:"required"`
	AllowedTypes []string `mapstructure:"allowed_types" validate:"min=1"`
}

// PassportConfig holds the output geometry. Colours are RGBA quadruples.
type PassportConfig struct {
	Width         int   `mapstructure:"width" validate:"gt=0"`
	Height        int   `mapstructure:"height" validate:"gt=0"`
	BorderWidth   int   `mapstructure:"border_width" validate:"gt=0"`
	BackdropColor []int `mapstructure:"backdrop_color" validate:"len=4,dive,min=0,max=255"`
	BorderColor   []int `mapstructure:"border_color" validate:"len=4,dive,min=0,max=255"`
}

type RemoverConfig struct {
	Backend          string        `mapstructure:"backend" validate:"oneof=command http grabcut none"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CleanupTempFiles bool          `mapstructure:"cleanup_temp_files"`
	Command          CommandConfig `mapstructure:"command"`
	HTTP             HTTPConfig    `mapstructure:"http"`
	GrabCut          GrabCutConfig `mapstructure:"grabcut"`
}

// CommandConfig describes an external remover tool. Args may contain the
// {input} and {output} placeholders.
type CommandConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

type HTTPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Size     string `mapstructure:"size"`
}

type GrabCutConfig struct {
	Iterations        int    `mapstructure:"iterations" validate:"min=1"`
	BorderSize        int    `mapstructure:"border_size" validate:"min=0"`
	MaxConcurrent     int    `mapstructure:"max_concurrent" validate:"min=1"`
	QueueTimeout      int    `mapstructure:"queue_timeout" validate:"min=0"`
	MaxForegroundOnly bool   `mapstructure:"max_foreground_only"`
	CascadePath       string `mapstructure:"cascade_path"`
}

// SheetConfig describes the print sheet in pixels.
type SheetConfig struct {
	Width    int `mapstructure:"width" validate:"gt=0"`
	Height   int `mapstructure:"height" validate:"gt=0"`
	Margin   int `mapstructure:"margin" validate:"min=0"`
	Gap      int `mapstructure:"gap" validate:"min=0"`
	MaxCount int `mapstructure:"max_count" validate:"gt=0"`
}

// Load reads configuration from a YAML file, layered over defaults and
// overridden by PASSPORT_* environment variables.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

// New loads config.yaml from the working directory. Without the file the
// defaults apply, still subject to environment overrides.
func New() (*Config, error) {
	cfg, err := Load("config.yaml")
	if errors.Is(err, os.ErrNotExist) {
		return decode(newViper())
	}
	return cfg, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.scratch_dir", d.Upload.ScratchDir)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("passport.width", d.Passport.Width)
	v.SetDefault("passport.height", d.Passport.Height)
	v.SetDefault("passport.border_width", d.Passport.BorderWidth)
	v.SetDefault("passport.backdrop_color", d.Passport.BackdropColor)
	v.SetDefault("passport.border_color", d.Passport.BorderColor)

	v.SetDefault("remover.backend", d.Remover.Backend)
	v.SetDefault("remover.timeout", d.Remover.Timeout)
	v.SetDefault("remover.cleanup_temp_files", d.Remover.CleanupTempFiles)
	v.SetDefault("remover.command.path", d.Remover.Command.Path)
	v.SetDefault("remover.command.args", d.Remover.Command.Args)
	v.SetDefault("remover.http.endpoint", d.Remover.HTTP.Endpoint)
	v.SetDefault("remover.http.api_key", d.Remover.HTTP.APIKey)
	v.SetDefault("remover.http.size", d.Remover.HTTP.Size)
	v.SetDefault("remover.grabcut.iterations", d.Remover.GrabCut.Iterations)
	v.SetDefault("remover.grabcut.border_size", d.Remover.GrabCut.BorderSize)
	v.SetDefault("remover.grabcut.max_concurrent", d.Remover.GrabCut.MaxConcurrent)
	v.SetDefault("remover.grabcut.queue_timeout", d.Remover.GrabCut.QueueTimeout)
	v.SetDefault("remover.grabcut.max_foreground_only", d.Remover.GrabCut.MaxForegroundOnly)
	v.SetDefault("remover.grabcut.cascade_path", d.Remover.GrabCut.CascadePath)

	v.SetDefault("sheet.width", d.Sheet.Width)
	v.SetDefault("sheet.height", d.Sheet.Height)
	v.SetDefault("sheet.margin", d.Sheet.Margin)
	v.SetDefault("sheet.gap", d.Sheet.Gap)
	v.SetDefault("sheet.max_count", d.Sheet.MaxCount)
}

// Default returns the built-in configuration: a 35x45mm photo at 300 DPI on
// a blue backdrop with a black frame, printed on A4.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":3000",
			Mode:            "debug",
			StaticDir:       "./public",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			ScratchDir:   "./uploads",
			AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
		},
		Passport: PassportConfig{
			Width:         413,
			Height:        531,
			BorderWidth:   10,
			BackdropColor: []int{74, 144, 226, 255},
			BorderColor:   []int{0, 0, 0, 255},
		},
		Remover: RemoverConfig{
			Backend:          "command",
			Timeout:          45 * time.Second,
			CleanupTempFiles: true,
			Command: CommandConfig{
				Path: "rembg",
				Args: []string{"i", "{input}", "{output}"},
			},
			HTTP: HTTPConfig{
				Endpoint: "https://api.remove.bg/v1.0/removebg",
				Size:     "auto",
			},
			GrabCut: GrabCutConfig{
				Iterations:        5,
				BorderSize:        10,
				MaxConcurrent:     3,
				QueueTimeout:      30,
				MaxForegroundOnly: true,
				CascadePath:       "haarcascade_frontalface_default.xml",
			},
		},
		Sheet: SheetConfig{
			Width:    2480,
			Height:   3508,
			Margin:   50,
			Gap:      20,
			MaxCount: 30,
		},
	}
}
