package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// config holds defaults that a TOML file may set. Flags given on the
// command line win over the file.
type config struct {
	Path     string `toml:"path"`
	Prefix   string `toml:"prefix"`
	XGuards  bool   `toml:"xguards"`
	YGuards  string `toml:"yguards"`
	Info     bool   `toml:"info"`
	Strict   bool   `toml:"strict"`
	TindAuto bool   `toml:"tind_auto"`
	Format   string `toml:"format"`
	LogLevel string `toml:"log_level"`
}

func defaultConfig() config {
	return config{
		Path:     ".",
		Prefix:   "BOUT.dmp",
		XGuards:  true,
		YGuards:  "none",
		Format:   "text",
		LogLevel: "warn",
	}
}

type changedFlags interface {
	Changed(name string) bool
}

// load reads path and copies every key it defines into c, except where the
// matching flag was given explicitly.
func (c *config) load(path string, flags changedFlags) error {
	var file config
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	fields := []struct {
		key, flag string
		apply     func()
	}{
		{"path", "path", func() { c.Path = file.Path }},
		{"prefix", "prefix", func() { c.Prefix = file.Prefix }},
		{"xguards", "xguards", func() { c.XGuards = file.XGuards }},
		{"yguards", "yguards", func() { c.YGuards = file.YGuards }},
		{"info", "info", func() { c.Info = file.Info }},
		{"strict", "strict", func() { c.Strict = file.Strict }},
		{"tind_auto", "tind-auto", func() { c.TindAuto = file.TindAuto }},
		{"format", "format", func() { c.Format = file.Format }},
		{"log_level", "log-level", func() { c.LogLevel = file.LogLevel }},
	}
	for _, f := range fields {
		if meta.IsDefined(f.key) && !flags.Changed(f.flag) {
			f.apply()
		}
	}
	return nil
}
