package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "JOURNAL_CONFIG"

type Config interface {
	EnvConfig
	IdentityConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPrettyLogs() bool
}

type mainConfig struct {
	EnvVars
	Identity
	API
	Storage
}

// New returns configuration read from the environment only.
func New() Config {
	return newMainConfig(&fileValues{})
}

// Load reads a .env file from the working directory when there is one, then the YAML file at
// path (or $JOURNAL_CONFIG). Environment variables win over file values.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config.Load] .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(configFileEnvVar)
	}
	values := &fileValues{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("[config.Load] %w", err)
		}
		if err := yaml.Unmarshal(data, values); err != nil {
			return nil, fmt.Errorf("[config.Load] parse %s: %w", path, err)
		}
	}
	return newMainConfig(values), nil
}

func newMainConfig(values *fileValues) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{file: values},
		Identity: Identity{file: values},
		API:      API{file: values},
		Storage:  Storage{file: values},
	}
}

// fileValues is the YAML configuration file.
type fileValues struct {
	AppName string `yaml:"appName"`
	Env     string `yaml:"env"`
	Log     struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`
	Auth struct {
		Domain      string `yaml:"domain"`
		ClientID    string `yaml:"clientId"`
		AppDomain   string `yaml:"appDomain"`
		CallbackURL string `yaml:"callbackUrl"`
		Audience    string `yaml:"audience"`
	} `yaml:"auth"`
	API struct {
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"api"`
	Session struct {
		Store      string `yaml:"store"`
		Path       string `yaml:"path"`
		Passphrase string `yaml:"passphrase"`
	} `yaml:"session"`
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
