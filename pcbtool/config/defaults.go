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

package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/AliMorty/OS-Project/pcbtool/flag"
)

// defaultsFile is the layout of a TOML flag defaults file:
//
//	[flags]
//	  debug = "true"
//	  memory-frames = "8192"
//
// Keys under the flags table name command line flags. The values are applied
// to every flag the command line leaves unset.
type defaultsFile struct {
	Flags map[string]string `toml:"flags"`
}

// ApplyDefaultsFile reads the TOML defaults file at path and applies its
// values to every flag in flagSet that was not set on the command line.
// Explicit command line flags always win. It must be called after flagSet
// has been parsed.
func ApplyDefaultsFile(flagSet *flag.FlagSet, path string) error {
	var df defaultsFile
	if _, err := toml.DecodeFile(path, &df); err != nil {
		return fmt.Errorf("error decoding defaults file %q: %v", path, err)
	}

	set := make(map[string]bool)
	flagSet.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})

	for name, value := range df.Flags {
		if set[name] {
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			return fmt.Errorf("unknown flag %q in defaults file %q", name, path)
		}
		if err := fl.Value.Set(value); err != nil {
			return fmt.Errorf("error setting flag %s=%q from defaults file %q: %v", name, value, path, err)
		}
	}
	return nil
}
