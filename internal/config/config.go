package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Hub      HubConfig      `mapstructure:"hub"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	FileLine bool   `mapstructure:"file_line"`
}

type ProfilesConfig struct {
	Default          string `mapstructure:"default"`
	CL100KTiktoken   string `mapstructure:"cl100k_tiktoken"`
	O200KTiktoken    string `mapstructure:"o200k_tiktoken"`
	Voyage3Tokenizer string `mapstructure:"voyage3_tokenizer"`
	Voyage3FromHub   bool   `mapstructure:"voyage3_from_hub"`
}

type HubConfig struct {
	Repo     string `mapstructure:"repo"`
	Token    string `mapstructure:"token"`
	CacheDir string `mapstructure:"cache_dir"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	// SkipFile disables the search for bpetok.yaml in the working directory.
	SkipFile bool
	Defaults Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:    "info",
			FileLine: false,
		},
		Profiles: ProfilesConfig{
			Default:          "cl100k_base",
			CL100KTiktoken:   "",
			O200KTiktoken:    "",
			Voyage3Tokenizer: "",
			Voyage3FromHub:   false,
		},
		Hub: HubConfig{
			Repo:     "voyageai/voyage-3",
			Token:    "",
			CacheDir: "",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.Log.Level, "Log level (debug|info|warn|error)")
	fs.Bool("log-file-line", defaults.Log.FileLine, "Include file:line in log output")
	fs.String("profile", defaults.Profiles.Default, "Tokenizer profile (cl100k_base|o200k_base|voyage3_base)")
	fs.String("profiles-cl100k-tiktoken", defaults.Profiles.CL100KTiktoken, "Read cl100k_base ranks from this .tiktoken file instead of the embedded copy")
	fs.String("profiles-o200k-tiktoken", defaults.Profiles.O200KTiktoken, "Read o200k_base ranks from this .tiktoken file instead of the embedded copy")
	fs.String("profiles-voyage3-tokenizer", defaults.Profiles.Voyage3Tokenizer, "Path to the voyage3_base tokenizer.json")
	fs.Bool("profiles-voyage3-from-hub", defaults.Profiles.Voyage3FromHub, "Download the voyage3_base tokenizer.json from the HuggingFace Hub when no path is set")
	fs.String("hub-repo", defaults.Hub.Repo, "HuggingFace repository holding the voyage3_base tokenizer.json")
	fs.String("hub-token", defaults.Hub.Token, "HuggingFace token (falls back to HF_TOKEN env var)")
	fs.String("hub-cache-dir", defaults.Hub.CacheDir, "HuggingFace download cache directory")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("BPETOK")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("hub.token", "BPETOK_HUB_TOKEN", "HF_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind hub token env vars: %w", err)
	}
	v.AutomaticEnv()

	switch {
	case opts.ConfigFile != "":
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	case !opts.SkipFile:
		v.SetConfigName("bpetok")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file_line", c.Log.FileLine)
	v.SetDefault("profiles.default", c.Profiles.Default)
	v.SetDefault("profiles.cl100k_tiktoken", c.Profiles.CL100KTiktoken)
	v.SetDefault("profiles.o200k_tiktoken", c.Profiles.O200KTiktoken)
	v.SetDefault("profiles.voyage3_tokenizer", c.Profiles.Voyage3Tokenizer)
	v.SetDefault("profiles.voyage3_from_hub", c.Profiles.Voyage3FromHub)
	v.SetDefault("hub.repo", c.Hub.Repo)
	v.SetDefault("hub.token", c.Hub.Token)
	v.SetDefault("hub.cache_dir", c.Hub.CacheDir)
}

// flagKeys maps dotted config keys to their command-line flags. Binding
// per key keeps config file values visible, which aliases would shadow.
var flagKeys = map[string]string{
	"log.level":                  "log-level",
	"log.file_line":              "log-file-line",
	"profiles.default":           "profile",
	"profiles.cl100k_tiktoken":   "profiles-cl100k-tiktoken",
	"profiles.o200k_tiktoken":    "profiles-o200k-tiktoken",
	"profiles.voyage3_tokenizer": "profiles-voyage3-tokenizer",
	"profiles.voyage3_from_hub":  "profiles-voyage3-from-hub",
	"hub.repo":                   "hub-repo",
	"hub.token":                  "hub-token",
	"hub.cache_dir":              "hub-cache-dir",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
