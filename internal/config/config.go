// Package config loads the hexstat run configuration from flags, the
// environment (HEXSTAT_ prefix) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tingold/hexstat"
)

// EnvPrefix is prepended to every environment variable, e.g. HEXSTAT_RES.
const EnvPrefix = "HEXSTAT"

var validate = validator.New()

// Config mirrors the command line. Every field can also come from
// HEXSTAT_<NAME> (dashes become underscores) or a config file key.
type Config struct {
	Raster                string `mapstructure:"raster" validate:"required"`
	Mask                  string `mapstructure:"mask" validate:"required"`
	Res                   int    `mapstructure:"res" validate:"min=0,max=15"`
	Stat                  string `mapstructure:"stat" validate:"required,oneof=mean sum"`
	Out                   string `mapstructure:"out" validate:"required"`
	Format                string `mapstructure:"format" validate:"omitempty,oneof=csv geojson fgb"`
	RasterEPSG            int    `mapstructure:"raster-epsg" validate:"min=0"`
	RasterProj4           string `mapstructure:"raster-proj4" validate:"omitempty,startswith=+proj="`
	NoData                string `mapstructure:"nodata"`
	SkipIntersectionCheck bool   `mapstructure:"skip-intersection-check"`
	RollupRes             int    `mapstructure:"rollup-res" validate:"min=-1,max=15"`
	Preview               string `mapstructure:"preview"`
	PGDSN                 string `mapstructure:"pg-dsn"`
	Dataset               string `mapstructure:"dataset" validate:"required_with=PGDSN"`
	MetricsFile           string `mapstructure:"metrics-file"`
	LogLevel              string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
}

// Flags returns the flag set understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("hexstat", pflag.ContinueOnError)
	fs.String("raster", "", "single-band raster to aggregate (8/16-bit unsigned grayscale TIFF with a world file; float, signed and other formats need a build with -tags gdal)")
	fs.String("mask", "", "region mask (GeoJSON, FlatGeobuf or WKT in EPSG:4326)")
	fs.Int("res", 8, "H3 resolution (0-15)")
	fs.String("stat", "mean", "statistic: mean or sum")
	fs.String("out", "out.csv", "output file")
	fs.String("format", "", "output format: csv, geojson or fgb (default from --out extension)")
	fs.Int("raster-epsg", 0, "override the raster CRS with an EPSG code")
	fs.String("raster-proj4", "", "override the raster CRS with a proj4 definition")
	fs.String("nodata", "", "override the raster nodata value")
	fs.Bool("skip-intersection-check", false, "trust the centroid polyfill and skip the raster-space intersection test")
	fs.Int("rollup-res", -1, "also aggregate results to parents at this resolution (-1 disables)")
	fs.String("preview", "", "write a PNG preview of the results")
	fs.String("pg-dsn", "", "PostgreSQL connection string for storing results")
	fs.String("dataset", "", "dataset name stored with PostgreSQL results")
	fs.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("config", "", "config file (yaml, toml or json)")
	return fs
}

// Load parses args, merges environment and config file values and
// validates the result once. pflag.ErrHelp is returned unchanged.
func Load(args []string) (*Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", hexstat.ErrConfiguration, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("%w: %v", hexstat.ErrConfiguration, err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading config %s: %v", hexstat.ErrConfiguration, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", hexstat.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and reports the first offending one.
func (c *Config) Validate() error {
	if _, err := hexstat.ParseStat(c.Stat); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s=%v fails %q", hexstat.ErrConfiguration, fe.Field(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", hexstat.ErrConfiguration, err)
	}
	if c.NoData != "" {
		if _, err := strconv.ParseFloat(c.NoData, 64); err != nil {
			return fmt.Errorf("%w: nodata %q is not a number", hexstat.ErrConfiguration, c.NoData)
		}
	}
	if c.RollupRes > c.Res {
		return fmt.Errorf("%w: rollup-res %d is finer than res %d", hexstat.ErrConfiguration, c.RollupRes, c.Res)
	}
	return nil
}

// OutputFormat resolves the output format, falling back to the extension
// of Out.
func (c *Config) OutputFormat() (hexstat.Format, error) {
	if c.Format != "" {
		return hexstat.ParseFormat(c.Format)
	}
	switch {
	case strings.HasSuffix(strings.ToLower(c.Out), ".geojson"), strings.HasSuffix(strings.ToLower(c.Out), ".json"):
		return hexstat.FormatGeoJSON, nil
	case strings.HasSuffix(strings.ToLower(c.Out), ".fgb"):
		return hexstat.FormatFlatGeobuf, nil
	}
	return hexstat.FormatCSV, nil
}

// Pipeline converts the configuration into a hexstat.Config.
func (c *Config) Pipeline() (*hexstat.Config, error) {
	stat, err := hexstat.ParseStat(c.Stat)
	if err != nil {
		return nil, err
	}

	pc := &hexstat.Config{
		MaskPath:              c.Mask,
		RasterPath:            c.Raster,
		Resolution:            c.Res,
		Stat:                  stat,
		SkipIntersectionCheck: c.SkipIntersectionCheck,
	}

	switch {
	case c.RasterProj4 != "":
		pc.RasterCRS, err = hexstat.ParseCRS(c.RasterProj4)
	case c.RasterEPSG != 0:
		pc.RasterCRS, err = hexstat.LookupEPSG(c.RasterEPSG)
	}
	if err != nil {
		return nil, err
	}

	if c.NoData != "" {
		nd, err := strconv.ParseFloat(c.NoData, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: nodata %q: %v", hexstat.ErrConfiguration, c.NoData, err)
		}
		pc.NoData = &nd
	}

	if c.RollupRes >= 0 {
		r := c.RollupRes
		pc.RollupResolution = &r
	}

	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return pc, nil
}
