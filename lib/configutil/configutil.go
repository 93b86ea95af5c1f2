package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override file for a config file,
// `wris.json5` becomes `wris.local.json5`.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readJson5[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
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

// ReadConfig reads a json5 configuration file on top of `defaults`, `name`
// should come with a file extension.
// this function will merge the following, where higher number is more prioritized.
// 0. defaults
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned if neither file exists.
func ReadConfig[T any](name string, defaults T) (T, error) {
	out := defaults
	allNotFound := true

	var base T
	found, err := readJson5(name, &base)
	if err != nil {
		return out, err
	}
	if found {
		err = mergo.Merge(&out, base, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		allNotFound = false
	}

	localPath := LocalPath(name)
	var override T
	found, err = readJson5(localPath, &override)
	if err != nil {
		return out, err
	}
	if found {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it goes up the filesystem from the cwd
// until the root to find a configuration file matching the name.
func ReadRecursively[T any](name string, defaults T) (T, error) {
	current, err := os.Getwd()
	if err != nil {
		return defaults, err
	}

	for {
		config, err := ReadConfig(filepath.Join(current, name), defaults)
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defaults, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaults, os.ErrNotExist
		}
		current = parent
	}
}
