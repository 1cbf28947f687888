// Package startup prepares the process environment before configuration is
// read. Files listed in IMPERATIVE_ENV_FILE (separated by semicolons) are
// loaded as KEY=VALUE lines; variables already set in the environment win
// unless WithAllowOverride is given.
package startup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amp-labs/imperative/envutil"
	"github.com/amp-labs/imperative/logger"
)

// EnvFileKey lists the env files to load.
const EnvFileKey = "IMPERATIVE_ENV_FILE"

var ErrMalformedLine = errors.New("malformed env file line")

type options struct {
	allowOverride bool
}

type Option func(*options)

// WithAllowOverride lets file values replace variables already set.
func WithAllowOverride(allow bool) Option {
	return func(o *options) {
		o.allowOverride = allow
	}
}

// ConfigureEnvironment loads the files named by IMPERATIVE_ENV_FILE.
func ConfigureEnvironment(ctx context.Context, opts ...Option) error {
	files := envutil.Map(envutil.String(ctx, EnvFileKey), func(s string) ([]string, error) {
		var out []string

		for _, f := range strings.Split(s, ";") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}

		return out, nil
	}).ValueOrElse(nil)

	return ConfigureEnvironmentFromFiles(ctx, files, opts...)
}

// ConfigureEnvironmentFromFiles loads files in order. Later files override
// earlier ones.
func ConfigureEnvironmentFromFiles(ctx context.Context, files []string, opts ...Option) error {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	merged := make(map[string]string)

	for _, path := range files {
		if err := loadFile(path, merged); err != nil {
			return fmt.Errorf("loading environment variables from file %q: %w", path, err)
		}
	}

	set := 0

	for k, v := range merged {
		if old, exists := os.LookupEnv(k); exists && (!cfg.allowOverride || old == v) {
			continue
		}

		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("setting environment variable %q: %w", k, err)
		}

		set++
	}

	if len(files) > 0 {
		logger.Get(ctx).Debug("environment configured", "files", files, "set", set)
	}

	return nil
}

func loadFile(path string, into map[string]string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	return Parse(f, into)
}

// Parse reads KEY=VALUE lines from r into dst. Blank lines and lines
// starting with # are skipped, an "export " prefix is allowed and values
// may be single or double quoted.
func Parse(r io.Reader, dst map[string]string) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}

		dst[key] = unquote(strings.TrimSpace(value))
	}

	return scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}

	return v
}
