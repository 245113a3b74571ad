package config

import (
	"os"
	"strconv"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	prettyLogsVar = "LOG_PRETTY"
)

type EnvVars struct {
	file *fileValues
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.file.AppName, "Prayer Journal"))
}

func (e EnvVars) GetEnv() string {
	return GetEnv(envVar, orDefault(e.file.Env, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, orDefault(e.file.Log.Level, "info"))
}

// GetPrettyLogs reports whether logs go to the console writer. Defaults to true outside
// production.
func (e EnvVars) GetPrettyLogs() bool {
	defaultValue := e.GetEnv() != "PROD"
	if e.file.Log.Pretty != nil {
		defaultValue = *e.file.Log.Pretty
	}
	pretty, err := strconv.ParseBool(GetEnv(prettyLogsVar, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return pretty
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
