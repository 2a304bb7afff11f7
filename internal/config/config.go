// Package config declares the CLI grammar. Kong parses flags, environment
// variables and config files against these structs and dispatches to the
// command Run methods in internal/cmd.
package config

import (
	"github.com/jmault/buscope/internal/cmd"
)

// LogConfig is the logging surface shared by every command. All log
// output goes to stderr or a file; stdout carries only rendered results.
type LogConfig struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" enum:"trace,debug,info,warn,error" env:"BUSCOPE_LOG_LEVEL"`
	File    string `help:"Write full logs to this file; the console then only shows warnings" env:"BUSCOPE_LOG_FILE"`
	RawFile string `help:"Write hex dumps of raw descriptor reads to this file" name:"raw-file" env:"BUSCOPE_LOG_RAW_FILE"`
}

// CLI is the root command tree.
type CLI struct {
	Log    LogConfig `embed:"" prefix:"log."`
	Config string    `help:"Path to a config file" placeholder:"PATH" env:"BUSCOPE_CONFIG"`

	List      cmd.List          `cmd:"" default:"withargs" help:"List devices as a flat table (the default command)"`
	Tree      cmd.Tree          `cmd:"" help:"Draw the device topology as a tree"`
	Dump      cmd.Dump          `cmd:"" help:"Serialize the profiled topology to JSON or YAML"`
	Watch     cmd.Watch         `cmd:"" help:"Redraw the topology as devices come and go"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration file helpers"`
	Version   cmd.VersionCmd    `cmd:"" help:"Print version information"`
}
