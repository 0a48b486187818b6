package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
)

const FileName = "tl.toml"

type (
	Config struct {
		Build Build `toml:"build"`
		Log   Log   `toml:"log"`

		// Path is the file the config was loaded from, empty for defaults.
		Path string `toml:"-"`
	}

	Build struct {
		EmitIR      bool     `toml:"emit_ir"`
		OutDir      string   `toml:"out_dir"`
		ImportPaths []string `toml:"import_paths"`
		Jobs        int      `toml:"jobs"`
	}

	Log struct {
		Verbosity string `toml:"verbosity"`
	}
)

func Default() *Config {
	return &Config{}
}

// FindAndLoad looks for tl.toml in dir and its parents.
// Defaults are returned if there is none.
func FindAndLoad(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// Find returns the nearest tl.toml walking up from dir or an empty string.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "abs path")
	}

	for {
		path := filepath.Join(dir, FileName)

		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrap(err, "stat %v", path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

func Load(path string) (*Config, error) {
	c := Default()

	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, errors.Wrap(err, "decode %v", path)
	}

	if keys := md.Undecoded(); len(keys) != 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}

		return nil, errors.New("%v: unknown keys: %s", path, strings.Join(names, ", "))
	}

	if c.Build.Jobs < 0 {
		return nil, errors.New("%v: build.jobs must not be negative", path)
	}

	c.Path = path
	root := filepath.Dir(path)

	for i, p := range c.Build.ImportPaths {
		if !filepath.IsAbs(p) {
			c.Build.ImportPaths[i] = filepath.Join(root, p)
		}
	}

	if c.Build.OutDir != "" && !filepath.IsAbs(c.Build.OutDir) {
		c.Build.OutDir = filepath.Join(root, c.Build.OutDir)
	}

	return c, nil
}

// Root is the directory of the config file.
func (c *Config) Root() string {
	if c.Path == "" {
		return ""
	}

	return filepath.Dir(c.Path)
}
