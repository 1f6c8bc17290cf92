package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// localPath turns "dir/name.ext" into "dir/name.local.ext".
func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readJson5 decodes the file at path into out, a missing or empty file
// leaves out untouched and returns false.
func readJson5(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads the json5 config file `name` (extension included) and
// merges <name>.local.<ext> over it when present. Neither file has to
// exist, in which case the zero value of T is returned.
func ReadConfig[T any](name string) (T, error) {
	var out T
	_, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	local := localPath(name)
	found, err := readJson5(local, &override)
	if err != nil || !found {
		return out, err
	}
	err = mergo.Merge(&out, override, mergo.WithOverride)
	if err != nil {
		return out, err
	}
	slog.Debug("merged config with local overrides", "local", local)
	return out, nil
}

// LoadDotenv loads the given .env files into the process environment,
// variables that are already set are left untouched. Missing files are
// ignored.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// EnvString returns the value of the environment variable `key` or
// `fallback` if it is unset or blank.
func EnvString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// EnvInt is EnvString for integers, a malformed value is an error.
func EnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return parsed, nil
}
