package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Mapper MapperConfig `yaml:"mapper" mapstructure:"mapper"`
	Locale LocaleConfig `yaml:"locale" mapstructure:"locale"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// PathsConfig configures the input, working, and output directories.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`
	ExtractDir string `yaml:"extract_dir" mapstructure:"extract_dir"`
	OutputDir  string `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures the warehouse backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// MapperConfig configures schema mapping generation.
type MapperConfig struct {
	Mode   string `yaml:"mode" mapstructure:"mode"` // "offline" or "anthropic"
	Model  string `yaml:"model" mapstructure:"model"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// LocaleConfig carries the language-specific inference rules used by the
// advanced cleaner. Defaults reproduce the French CASIMAGE rule set; a
// deployment against English exports overrides these in config.yaml.
type LocaleConfig struct {
	// AgePattern extracts an age from free text. The first capture group
	// must be the numeric age.
	AgePattern string `yaml:"age_pattern" mapstructure:"age_pattern"`
	// AgeExcludePatterns disqualify a narrative from age extraction
	// (durations like "depuis 10 ans" are not patient ages).
	AgeExcludePatterns []string `yaml:"age_exclude_patterns" mapstructure:"age_exclude_patterns"`
	// MalePatterns and FemalePatterns are explicit phrase regexes.
	MalePatterns   []string `yaml:"male_patterns" mapstructure:"male_patterns"`
	FemalePatterns []string `yaml:"female_patterns" mapstructure:"female_patterns"`
	// MaleKeywords and FemaleKeywords are gendered anatomy substrings.
	MaleKeywords   []string `yaml:"male_keywords" mapstructure:"male_keywords"`
	FemaleKeywords []string `yaml:"female_keywords" mapstructure:"female_keywords"`
	// NarrativeColumns are scanned, in order, for age and sex signals.
	NarrativeColumns []string `yaml:"narrative_columns" mapstructure:"narrative_columns"`
	// TechnicalPrefix marks metadata columns dropped unconditionally.
	TechnicalPrefix string `yaml:"technical_prefix" mapstructure:"technical_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultLocale returns the built-in French CASIMAGE inference rules.
// English forms that occur in mixed-language exports are included.
func DefaultLocale() LocaleConfig {
	return LocaleConfig{
		AgePattern: `(\b\d{1,3})\s*(?:ans|an|yo|years?)\b`,
		AgeExcludePatterns: []string{
			`depuis\s+\d{1,3}\s+ans`,
			`évolution`,
		},
		MalePatterns: []string{
			`\bhomme\b`, `\bgarçon\b`, `\bpatient\b`, `\bmasculin\b`,
			`\bil présente\b`, `\bil consulte\b`, `\bil s'agit\b`, `\bil a\b`,
			`\bd'un homme\b`, `\bchez lui\b`, `\bmr\b`, `\bmale\b`,
		},
		FemalePatterns: []string{
			`\bfemme\b`, `\bfille\b`, `\bpatiente\b`, `\bféminin\b`,
			`\belle présente\b`, `\belle consulte\b`, `\belle a\b`,
			`\bd'une femme\b`, `\bchez elle\b`, `\bmme\b`, `\bmademoiselle\b`,
			`\bfemale\b`,
		},
		MaleKeywords: []string{
			"prostate", "testicule", "scrotum", "verge", "pénis", "penis",
			"epididyme", "épididyme", "andropause",
		},
		FemaleKeywords: []string{
			"ovaire", "ovaires", "utérus", "uterus", "grossesse",
			"endomètre", "endometre", "fœtus", "foetus",
			"ménopause", "menopause", "gynécologie", "gynecologie",
		},
		NarrativeColumns: []string{
			"ClinicalPresentation", "Description", "Commentary", "Title", "KeyWords",
		},
		TechnicalPrefix: "O",
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CASIMAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.extract_dir", "data_temp")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "output/casimage_dw.db")
	v.SetDefault("mapper.mode", "offline")
	v.SetDefault("mapper.model", "claude-haiku-4-5-20251001")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	loc := DefaultLocale()
	v.SetDefault("locale.age_pattern", loc.AgePattern)
	v.SetDefault("locale.age_exclude_patterns", loc.AgeExcludePatterns)
	v.SetDefault("locale.male_patterns", loc.MalePatterns)
	v.SetDefault("locale.female_patterns", loc.FemalePatterns)
	v.SetDefault("locale.male_keywords", loc.MaleKeywords)
	v.SetDefault("locale.female_keywords", loc.FemaleKeywords)
	v.SetDefault("locale.narrative_columns", loc.NarrativeColumns)
	v.SetDefault("locale.technical_prefix", loc.TechnicalPrefix)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
