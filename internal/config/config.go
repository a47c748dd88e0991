// Package config loads oggstream settings from defaults, an optional YAML
// file and OGGSTREAM_* environment variables.
package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/thesyncim/oggstream"
)

// EnvPrefix prefixes every environment override, e.g.
// OGGSTREAM_POOL_ENCODERS=2.
const EnvPrefix = "OGGSTREAM"

// Config is the resolved configuration.
type Config struct {
	EncoderSlots int
	DecoderSlots int
	ChunkFrames  int
	Quality      float32
	Codec        string
	LogLevel     zerolog.Level
	Comments     []string
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("pool.encoders", oggstream.DefaultEncoderSlots)
	v.SetDefault("pool.decoders", oggstream.DefaultDecoderSlots)
	v.SetDefault("encode.chunk_frames", oggstream.DefaultChunkFrames)
	v.SetDefault("encode.quality", 0.4)
	v.SetDefault("encode.codec", oggstream.DefaultCodec)
	v.SetDefault("encode.comments", []string{})
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SearchPaths lists the directories searched for oggstream.yaml when no
// explicit file is given, in order.
func SearchPaths() []string {
	return []string{".", filepath.Join(xdg.ConfigHome, "oggstream"), filepath.Join(xdg.Home, ".oggstream")}
}

// Load reads the configuration. path names a YAML file; when empty,
// oggstream.yaml is looked up in SearchPaths and a missing file is not an
// error.
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("oggstream")
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "config: read")
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	level, err := ParseLevel(v.GetString("log.level"))
	if err != nil {
		return Config{}, err
	}
	c := Config{
		EncoderSlots: v.GetInt("pool.encoders"),
		DecoderSlots: v.GetInt("pool.decoders"),
		ChunkFrames:  v.GetInt("encode.chunk_frames"),
		Quality:      float32(v.GetFloat64("encode.quality")),
		Codec:        v.GetString("encode.codec"),
		LogLevel:     level,
		Comments:     v.GetStringSlice("encode.comments"),
	}
	if c.EncoderSlots <= 0 || c.DecoderSlots <= 0 {
		return Config{}, errors.Errorf("config: pool sizes must be positive, got %d encoders and %d decoders", c.EncoderSlots, c.DecoderSlots)
	}
	if c.ChunkFrames <= 0 {
		return Config{}, errors.Errorf("config: encode.chunk_frames must be positive, got %d", c.ChunkFrames)
	}
	if c.Quality < -0.1 || c.Quality > 1 {
		return Config{}, errors.Errorf("config: encode.quality %.2f outside [-0.1, 1]", c.Quality)
	}
	return c, nil
}

// levelAliases are accepted on top of the zerolog level names.
var levelAliases = map[string]string{
	"":        "info",
	"warning": "warn",
	"off":     "disabled",
}

// ParseLevel parses a zerolog level name, case-insensitively. An empty
// string selects info.
func ParseLevel(s string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := levelAliases[name]; ok {
		name = alias
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "config: log level %q", s)
	}
	return level, nil
}

// HostOptions returns the options that configure a Host and its sessions.
func (c Config) HostOptions(log zerolog.Logger) []oggstream.Option {
	opts := []oggstream.Option{
		oggstream.WithEncoderSlots(c.EncoderSlots),
		oggstream.WithDecoderSlots(c.DecoderSlots),
		oggstream.WithChunkFrames(c.ChunkFrames),
		oggstream.WithCodec(c.Codec),
		oggstream.WithLogger(log),
	}
	if len(c.Comments) > 0 {
		opts = append(opts, oggstream.WithComments(c.Comments...))
	}
	return opts
}
