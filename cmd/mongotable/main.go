// Copyright 2019 Tad Lebeck
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Nuvoloso/mongotable/pkg/mongodb"
	"github.com/Nuvoloso/mongotable/pkg/mongotable"
	"github.com/jessevdk/go-flags"
	"github.com/op/go-logging"
)

// Build information passed in via ld flags
var (
	BuildID   string
	BuildTime string
	BuildHost string
	BuildJob  string
	Appname   string
)

const (
	eHOME      = "HOME"
	defAppname = "mongotable"
)

// Ini file related variables
var iniFileNameTemplate = "%s/.config/%s.ini"
var iniFileEnv string
var defIniFile string
var iniFile string

// AppCtx contains common top-level options and state
type AppCtx struct {
	MongoArgs    mongodb.Args `group:"Mongo Options" namespace:"mongo"`
	OutputFormat string       `short:"o" long:"output" description:"Output format control" choice:"json" choice:"table" choice:"yaml" default:"table"`
	LogLevel     string       `long:"log-level" description:"Specify the minimum logging level" default:"WARNING" choice:"DEBUG" choice:"INFO" choice:"WARNING" choice:"ERROR"`

	Emitter
	helper tableHelper
	log    *logging.Logger
	ctx    context.Context
}

// InitHelper connects to the database after the flags are parsed
func (c *AppCtx) InitHelper() error {
	if c.helper != nil {
		return nil
	}
	c.MongoArgs.Log = c.log
	c.MongoArgs.AppName = Appname
	h, err := helperHook(c.ctx, &c.MongoArgs)
	if err != nil {
		return err
	}
	c.helper = h
	return nil
}

// CloseHelper disconnects from the database
func (c *AppCtx) CloseHelper() {
	if c.helper != nil {
		c.helper.Close()
		c.helper = nil
	}
}

type helperFn func(ctx context.Context, args *mongodb.Args) (tableHelper, error)

var helperHook helperFn = newHelper

func newHelper(ctx context.Context, args *mongodb.Args) (tableHelper, error) {
	h, err := mongotable.New(ctx, args)
	if err != nil {
		return nil, err
	}
	return h, nil
}

var appCtx = &AppCtx{}
var parser = flags.NewParser(appCtx, flags.Default&^flags.PrintErrors)
var outputWriter io.Writer
var debugWriter io.Writer

func init() {
	if Appname == "" {
		Appname = defAppname
	}
	iniFileEnv = strings.ToUpper(Appname + "_CONFIG_FILE")
	outputWriter = os.Stdout
	debugWriter = os.Stderr
	appCtx.ctx = context.Background()
	initParser()
}

func initParser() {
	parser.ShortDescription = Appname
	parser.Usage = "[Application Options]"
	parser.LongDescription = "Move tabular data in and out of MongoDB collections. " +
		"The read command loads a collection into a table and the upsert command writes the rows of a " +
		"CSV, JSON lines or YAML file into a collection keyed on one of its columns.\n" +
		"\n" +
		"The program initializes itself from an INI file specified by the " +
		iniFileEnv + " environment variable or else from " +
		fmt.Sprintf(iniFileNameTemplate, "$"+eHOME, Appname) + ". " +
		"The format of the file is as follows:\n\n" +
		" [Application Options]\n" +
		" OutputFormat = yaml\n" +
		"\n" +
		" [Mongo Options]\n" +
		" URL = mongodb://host:27017\n" +
		" DatabaseName = defaultDatabase\n" +
		"\n" +
		"All properties are optional and correspond to the program argument long flag names. " +
		"Use the write-config command to create a file with all the properties."

	parser.AddCommand("version", "Show version", "Show build version information.", &versionCmd{})
	parser.AddCommand("help", "Show program or command usage", "Shows the program usage if no argument specified otherwise it displays help for the command specified.", &helpCmd{})
	parser.AddCommand("write-config", "Write the configuration file", "Write the current configuration, including defaults, to the specified INI file.", &writeConfigCmd{})
	initTableCommands()
	initAdminCommands()
	initDocumentCommands()
}

type versionCmd struct{}

func (c *versionCmd) Execute(args []string) error {
	data := struct{ BuildID, BuildTime, BuildJob, BuildHost string }{
		BuildID,
		BuildTime,
		BuildJob,
		BuildHost,
	}
	switch appCtx.OutputFormat {
	case "json":
		return appCtx.EmitJSON(data)
	case "yaml":
		return appCtx.EmitYAML(data)
	}
	return appCtx.EmitTable([]string{"Build ID", "Build Date", "Build Job", "Build Host"},
		[][]string{{data.BuildID, data.BuildTime, data.BuildJob, data.BuildHost}}, nil)
}

type helpCmd struct {
	Positional struct {
		CommandSpecifier []string `positional-arg-name:"Command"`
	} `positional-args:"yes"`
}

func (c *helpCmd) Execute(args []string) error {
	parser.Command.Active = nil // want global help by default
	if len(c.Positional.CommandSpecifier) > 0 {
		cName := c.Positional.CommandSpecifier[0]
		if cmd := parser.Find(cName); cmd != nil {
			parser.Command.Active = cmd
		} else {
			fmt.Fprintf(outputWriter, "Command \"%s\" not found!\n", cName)
		}
	}
	parser.WriteHelp(outputWriter)
	return nil
}

type writeConfigCmd struct {
	Positional struct {
		FileName flags.Filename `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes"`
}

func (c *writeConfigCmd) Execute(args []string) error {
	iniP := flags.NewIniParser(parser)
	if err := iniP.WriteFile(string(c.Positional.FileName), flags.IniIncludeComments|flags.IniIncludeDefaults|flags.IniCommentDefaults); err != nil {
		return err
	}
	fmt.Fprintln(outputWriter, "Wrote configuration to", c.Positional.FileName)
	return nil
}

// setupLogging initializes the process logger; records go to the debugWriter
func setupLogging(level string) error {
	logLevel, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", level)
	}
	backend := logging.NewLogBackend(debugWriter, "", 0)
	formatter := logging.MustStringFormatter("%{time} %{level:.1s} %{shortfile} %{message}")
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logLevel, "")
	logging.SetBackend(leveled)
	appCtx.log = logging.MustGetLogger(Appname)
	return nil
}

func commandHandler(command flags.Commander, args []string) error {
	if command == nil {
		return nil
	}
	// commands that don't need the database
	switch command.(type) {
	case *helpCmd, *versionCmd, *writeConfigCmd:
		return command.Execute(args)
	}
	if err := setupLogging(appCtx.LogLevel); err != nil {
		return err
	}
	if err := appCtx.InitHelper(); err != nil {
		return err
	}
	defer appCtx.CloseHelper()
	return command.Execute(args)
}

func parseAndRun(args []string) error {
	homeDir, ok := os.LookupEnv(eHOME)
	if !ok {
		homeDir = "/"
	}
	defIniFile = fmt.Sprintf(iniFileNameTemplate, homeDir, Appname)
	iniFile, ok = os.LookupEnv(iniFileEnv)
	if !ok {
		iniFile = defIniFile
	}
	if e := flags.NewIniParser(parser).ParseFile(iniFile); e != nil {
		if !os.IsNotExist(e) {
			return fmt.Errorf("%s: INI file error: %s", iniFile, e)
		}
	}
	parser.CommandHandler = commandHandler
	_, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprint(outputWriter, err.Error())
			return nil
		}
		return fmt.Errorf("%s", err.Error())
	}
	return nil
}

type exitFn func(int)

var exitHook exitFn = os.Exit

func main() {
	appCtx.Emitter = &StdoutEmitter{}
	if err := parseAndRun(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s.\n", err.Error())
		exitHook(1)
	}
}
