package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/restspec/packages/proxy"
)

// DefaultConfigFile is the conventional config file name searched for in the
// working directory.
const DefaultConfigFile = ".restspec.yaml"

// fileConfig mirrors the YAML shape of a config file. The proxy node is
// either a bare URL string or a host/port map, matching the boundary shapes
// accepted by the proxy package.
type fileConfig struct {
	TimeoutMS int    `yaml:"timeout_ms"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	BaseURL   string `yaml:"base_url"`
	Proxy     any    `yaml:"proxy"`
}

// LoadFile reads a YAML config file into an Override. Absent keys stay nil
// so the file composes with the other layers like any override.
func LoadFile(path string) (*Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	o := &Override{}
	if fc.TimeoutMS > 0 {
		d := time.Duration(fc.TimeoutMS) * time.Millisecond
		o.Timeout = &d
	}
	if fc.LogLevel != "" {
		o.LogLevel = &fc.LogLevel
	}
	if fc.LogFile != "" {
		o.LogFile = &fc.LogFile
	}
	if fc.BaseURL != "" {
		o.BaseURL = &fc.BaseURL
	}
	if fc.Proxy != nil {
		spec, err := proxy.ParseSpec(fc.Proxy)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		o.Proxy = spec
	}
	return o, nil
}

// Watch applies the config file to the configured-defaults registry and
// re-applies it whenever the file changes. Only builders constructed after a
// reload observe the new values, matching the registry contract. The watch
// stops when stop is closed; onApply, if non-nil, is invoked after each
// successful apply.
func Watch(path string, stop <-chan struct{}, onApply func(*Override)) error {
	apply := func() error {
		o, err := LoadFile(path)
		if err != nil {
			return err
		}
		ConfigureDefaults(o)
		if onApply != nil {
			onApply(o)
		}
		return nil
	}

	if err := apply(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Editors often replace the file; re-add in case the
					// inode changed.
					_ = watcher.Add(path)
					_ = apply()
				}
			case <-watcher.Errors:
			case <-stop:
				return
			}
		}
	}()

	return nil
}
