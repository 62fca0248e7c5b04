package configutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalName returns the path of the local override file for a given config
// file, `config.json5` -> `config.local.json5`.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

// pointerOverride makes a pointer set in a later layer replace the earlier
// pointer, mergo would otherwise merge into the pointee and skip zero values
// like `false`.
type pointerOverride struct{}

func (pointerOverride) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() == reflect.Struct {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if !src.IsNil() && dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func readLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// Load reads a configuration file on top of the given defaults, the
// following layers are merged where higher number is more prioritized.
// 0. defaults
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// missing files are skipped, found reports whether any file was read.
func Load[T any](name string, defaults T) (out T, found bool, err error) {
	out = defaults
	for _, path := range []string{name, LocalName(name)} {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, found, err
		}
		if !ok {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride, mergo.WithTransformers(pointerOverride{}))
		if err != nil {
			return out, found, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Debug("merged config layer", "path", path)
		found = true
	}
	return out, found, nil
}

// FindUp walks up the filesystem from the cwd until the root to find a
// file with the given name, it returns os.ErrNotExist if nothing is found.
func FindUp(name string) (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}

// Duration is a time.Duration that is written in config files as a string
// like "1.5s" or "250ms".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json5.Unmarshal(data, &text); err != nil {
		var millis int64
		if numErr := json5.Unmarshal(data, &millis); numErr != nil {
			return fmt.Errorf("duration must be a string like \"1s\" or milliseconds: %w", err)
		}
		*d = Duration(time.Duration(millis) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
