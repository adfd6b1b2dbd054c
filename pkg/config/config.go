/*
 * Copyright (c) 2023 shenjunzheng@gmail.com
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultConfigType = "json"
)

var (
	ErrInvalidDirectory  = errors.New("invalid directory path")
	ErrMissingConfigName = errors.New("config name not specified")
)

// Manager wraps one viper instance bound to a config directory, a config
// file name and an optional environment prefix.
type Manager struct {
	App         string
	EnvPrefix   string
	Path        string
	Name        string
	WriteConfig bool

	Viper *viper.Viper
}

// New creates a Manager for app. An empty path selects ~/.<app>, an empty
// name selects app, and a non-empty envPrefix binds <PREFIX>_<KEY>
// environment variables with dots replaced by underscores.
func New(app, path, name, envPrefix string, writeConfig bool) (*Manager, error) {
	if len(app) == 0 {
		return nil, ErrMissingConfigName
	}

	v := viper.New()
	v.SetConfigType(DefaultConfigType)

	if len(path) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		path = filepath.Join(home, "."+app)
	}
	if err := PrepareDir(path); err != nil {
		return nil, err
	}
	v.AddConfigPath(path)

	if len(name) == 0 {
		name = app
	}
	v.SetConfigName(name)

	if len(envPrefix) != 0 {
		v.SetEnvPrefix(strings.ToUpper(envPrefix))
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	return &Manager{
		App:         app,
		EnvPrefix:   envPrefix,
		Path:        path,
		Name:        name,
		WriteConfig: writeConfig,
		Viper:       v,
	}, nil
}

// Load reads the config file if there is one and decodes every known
// setting into conf. A missing file is not an error.
func (c *Manager) Load(conf any) error {
	if err := c.Viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Error().Err(err).Msg("read config failed")
			return err
		}
		log.Debug().Str("path", c.Path).Str("name", c.Name).Msg("no config file, using defaults")
		if c.WriteConfig {
			if err := c.Viper.SafeWriteConfig(); err != nil {
				return err
			}
		}
	}
	return c.Viper.Unmarshal(conf, decoderConfig())
}

// LoadFile reads an explicit config file and decodes it into conf.
func (c *Manager) LoadFile(file string, conf any) error {
	c.Viper.SetConfigFile(file)
	if err := c.Viper.ReadInConfig(); err != nil {
		return err
	}
	return c.Viper.Unmarshal(conf, decoderConfig())
}

// SetConfig overrides key, persisting it when the manager writes config.
func (c *Manager) SetConfig(key string, value any) error {
	c.Viper.Set(key, value)
	if c.WriteConfig {
		return c.Viper.WriteConfig()
	}
	return nil
}

func (c *Manager) GetConfig() map[string]any {
	return c.Viper.AllSettings()
}

// SetDefaults registers a default for every mapstructure key of conf, so
// that AutomaticEnv can see keys absent from the config file. Values from
// defaults win over the zero value; nested structs use dotted keys.
func SetDefaults(v *viper.Viper, conf any, defaults map[string]any) {
	t := reflect.TypeOf(conf)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		setStructDefaults(v, t, "")
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func setStructDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if key == "-" {
			continue
		}
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		ft := field.Type
		if ft.Kind() == reflect.Struct {
			setStructDefaults(v, ft, key)
			continue
		}
		v.SetDefault(key, reflect.Zero(ft).Interface())
	}
}

// PrepareDir makes sure path exists and is a directory.
func PrepareDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return os.MkdirAll(path, 0755)
	}
	if !stat.IsDir() {
		log.Debug().Msgf("%s is not a directory", path)
		return ErrInvalidDirectory
	}
	return nil
}
