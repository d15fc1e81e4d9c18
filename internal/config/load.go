package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load собирает Config. fset и args — флаги процесса (обычно flag.CommandLine и os.Args[1:]).
func Load(fset *flag.FlagSet, args []string) (*Config, error) {
	var (
		configPath = fset.String("config", "", "path to TOML config file")
		envFile    = fset.String("env-file", ".env", "path to .env file")
		port       = fset.Int("port", 0, "HTTP port (overrides PORT)")
		driver     = fset.String("store", "", "store driver: memory, file, sqlite, mongo")
	)
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	path := *configPath
	if path == "" {
		path = os.Getenv("TASKMASTER_CONFIG")
	}
	if path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(*envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", *envFile, err)
	}

	if err := loadFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFlags — Load для флагов процесса.
func LoadFlags(args []string) (*Config, error) {
	fset := flag.NewFlagSet("task-server", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	return Load(fset, args)
}

// loadConfigFile читает TOML поверх уже выставленных значений.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

// loadDotEnv подгружает .env, не перезаписывая уже заданные переменные.
// Отсутствие файла — не ошибка.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
