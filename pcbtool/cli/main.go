// Copyright 2018 The gVisor Authors.
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

// Package cli is the main entrypoint for pcbtool.
package cli

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/AliMorty/OS-Project/pcbtool/cmd"
	"github.com/AliMorty/OS-Project/pcbtool/cmd/util"
	"github.com/AliMorty/OS-Project/pcbtool/config"
	"github.com/AliMorty/OS-Project/pcbtool/flag"
	"github.com/AliMorty/OS-Project/pcbtool/version"
	"github.com/AliMorty/OS-Project/pkg/checkpoint/imagefile"
	"github.com/AliMorty/OS-Project/pkg/log"
)

// versionFlagName is the name of a flag that triggers printing the version.
const versionFlagName = "version"

var (
	// These flags are unique to the top level and are not part of Config.

	// configFile names a TOML file of flag defaults applied before the
	// command line, see config.ApplyDefaultsFile.
	configFile = flag.String("config-file", "", "TOML file with flag defaults. Command line flags override it.")
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)

	// Register version flag if it is not already defined.
	if flag.Lookup(versionFlagName) == nil {
		flag.Bool(versionFlagName, false, "show version and exit.")
	}

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	// Are we showing the version?
	if flag.Get(flag.Lookup(versionFlagName).Value).(bool) {
		fmt.Fprintf(os.Stdout, "pcbtool version %s\n", version.Version())
		fmt.Fprintf(os.Stdout, "image format: %d\n", imagefile.CurrentVersion)
		os.Exit(0)
	}

	// Flag defaults from the file are filled in before the Config is
	// built, so explicit command line flags keep precedence.
	if *configFile != "" {
		if err := config.ApplyDefaultsFile(flag.CommandLine, *configFile); err != nil {
			util.Fatalf(err.Error())
		}
	}

	// Create a new Config from the flags.
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		util.Fatalf(err.Error())
	}

	var errorLogger io.Writer
	if conf.LogFilename != "" {
		// We must set O_APPEND and not O_TRUNC because a driving program
		// may pass the same log file to every command, and each run must
		// not destroy the previous ones.
		var err error
		errorLogger, err = os.OpenFile(conf.LogFilename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			util.Fatalf("error opening log file %q: %v", conf.LogFilename, err)
		}
	}
	util.ErrorLogger = errorLogger

	subcommand := flag.CommandLine.Arg(0)

	// Set up logging.
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	var emitters log.MultiEmitter
	if len(conf.DebugLog) > 0 {
		f, err := debugLogFile(conf.DebugLog, subcommand)
		if err != nil {
			util.Fatalf("error opening debug log file in %q: %v", conf.DebugLog, err)
		}
		emitters = append(emitters, newEmitter(conf.DebugLogFormat, f))
	} else {
		// Stderr is reserved for error reporting, just discard the logs
		// if no debug log is specified.
		emitters = append(emitters, newEmitter("text", ioutil.Discard))
	}
	if conf.AlsoLogToStderr {
		emitters = append(emitters, newEmitter(conf.DebugLogFormat, os.Stderr))
	}

	switch len(emitters) {
	case 0:
		// Do nothing.
	case 1:
		// Use the singular emitter to avoid needless
		// `for` loop overhead when logging to a single place.
		log.SetTarget(emitters[0])
	default:
		log.SetTarget(&emitters)
	}

	const delimString = `**************** pcbtool ****************`
	log.Infof(delimString)
	log.Infof("Version %s, %s, %s, %d CPUs, %s, PID %d", version.Version(), runtime.Version(), runtime.GOARCH, runtime.NumCPU(), runtime.GOOS, os.Getpid())
	log.Debugf("Page size: 0x%x (%d bytes)", os.Getpagesize(), os.Getpagesize())
	log.Infof("Args: %v", os.Args)
	conf.Log()
	log.Infof(delimString)

	// Call the subcommand and pass in the configuration.
	subcmdCode := subcommands.Execute(context.Background(), conf)
	if subcmdCode == subcommands.ExitSuccess {
		os.Exit(0)
	}
	// Return an error that is unlikely to be used by the application.
	log.Warningf("Failure to execute command, err: %v", subcmdCode)
	os.Exit(128)
}

// forEachCmd invokes the passed callback for each command supported by
// pcbtool.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")

	// User-facing commands.
	cb(new(cmd.Checkpoint), "")
	cb(new(cmd.Restore), "")
	cb(new(cmd.State), "")
}

func newEmitter(format string, logFile io.Writer) log.Emitter {
	switch format {
	case "text":
		return log.GoogleEmitter{Writer: &log.Writer{Next: logFile}}
	case "json":
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	case "json-k8s":
		return log.K8sJSONEmitter{Writer: &log.Writer{Next: logFile}}
	}
	util.Fatalf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", format)
	panic("unreachable")
}

// debugLogFile opens the debug log file described by logPattern. A pattern
// ending in '/' names a directory that log files are created inside of with
// default names; otherwise %TIMESTAMP% and %COMMAND% in the pattern are
// substituted. The file is opened for appending so that commands sharing a
// pattern do not destroy each other's logs.
func debugLogFile(logPattern, command string) (*os.File, error) {
	if strings.HasSuffix(logPattern, "/") {
		// Default format: <debug-log>/pcbtool.log.<yyyymmdd-hhmmss.uuuuuu>.<command>.txt
		logPattern += "pcbtool.log.%TIMESTAMP%.%COMMAND%.txt"
	}
	return log.OpenFile(logPattern, log.FileOpts{
		Vars: map[string]string{
			"TIMESTAMP": time.Now().Format("20060102-150405.000000"),
			"COMMAND":   command,
		},
		Append: true,
	})
}
