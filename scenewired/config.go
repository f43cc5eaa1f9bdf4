package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scenewire/scenewire/scenewire"
)

// Config is the yaml daemon configuration. Every field is optional and
// overlays the default server settings.
//
//	host: localhost
//	port: 8137
//	auto_start: true
//	data:
//	  - objects
//	  - scenes
type Config struct {
	Host      string   `yaml:"host"`
	Port      *int     `yaml:"port"`
	AutoStart *bool    `yaml:"auto_start"`
	Data      []string `yaml:"data"`
}

func LoadConfig(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return config, nil
}

var configCategories = map[string]scenewire.Category{
	"cameras": scenewire.CategoryCameras,
	"lamps":   scenewire.CategoryLamps,
	"objects": scenewire.CategoryObjects,
	"worlds":  scenewire.CategoryWorlds,
	"scenes":  scenewire.CategoryScenes,
	"context": scenewire.CategoryContext,
}

// ApplyTo overlays the config onto settings. Unknown data category names
// are an error so typos do not silently disable syncing.
func (self *Config) ApplyTo(settings *scenewire.ServerSettings) error {
	if self.Host != "" {
		settings.Host = self.Host
	}
	if self.Port != nil {
		settings.Port = *self.Port
	}
	if self.AutoStart != nil {
		settings.AutoStart = *self.AutoStart
	}
	if self.Data != nil {
		enabled := scenewire.CategorySet{}
		for _, name := range self.Data {
			category, ok := configCategories[name]
			if !ok {
				return fmt.Errorf("unknown data category: %s", name)
			}
			enabled[category] = true
		}
		settings.Enabled = enabled
	}
	return nil
}
