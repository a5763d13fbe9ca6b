// Copyright 2020 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides basic infrastructure to set configuration settings
// for runmm. Each setting can be changed from the command line or from a TOML
// file named by --config.
package config

import (
	"fmt"
	"reflect"

	"gvisor.dev/vmem/pkg/log"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds configuration that is not part of a script.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag to specify the flag name.
//  3. Register a new flag in flags.go, with name and description.
//  4. Add any necessary validation into validate().
type Config struct {
	// Frames is the number of physical frames shared by all tasks.
	Frames uint `flag:"frames"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path pattern of an additional log file. The variables
	// %COMMAND%, %TIMESTAMP% and %PID% are replaced when the file is created.
	DebugLog string `flag:"debug-log"`

	// ConfigFile is the TOML file settings were loaded from, if any.
	ConfigFile string `flag:"config"`
}

func (c *Config) validate() error {
	if c.Frames == 0 {
		return fmt.Errorf("--frames must be greater than 0")
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be %q or %q", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Infof("\t%s: %s", name, getVal(obj.Field(i)))
		}
	}
}
