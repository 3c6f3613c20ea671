/*
   scpwrite - SuperCard Pro flux image writer
   Copyright (c) 2022, the scpwrite authors

   This file is part of scpwrite.

   scpwrite is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   scpwrite is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with scpwrite. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//
const epilogueHeader = `
Notes:

`

/*
	The package initializer sets up logging based on logrus. The following
	environment variables can be used to configure logging:

		LOG_FORMAT		set to `json` for JSON logging
		LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
		LOG_METHODS		set to non-empty for including methods in log
		LOG_LEVEL		`panic`, `fatal`, `error`, `warn`, `info`, `debug`, `trace`
*/
func init() {

	log.SetOutput(os.Stdout)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else if strings.ToLower(os.Getenv("LOG_FORCE_COLORS")) != "" {
		log.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
	}

	if strings.ToLower(os.Getenv("LOG_METHODS")) != "" {
		log.SetReportCaller(true)
	}

	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		l, err := log.ParseLevel(level)
		if err != nil {
			log.Errorf("invalid log level: '%s'; valid levels are: panic, "+
				"fatal, error, warn, info, debug, trace", level)
		} else {
			log.SetLevel(l)
		}
	}
}

//
var (
	UnderTest bool
)

// DieOnError exits the running process if e is not nil. The error gets logged.
func DieOnError(e error) {
	if e != nil {
		fmt.Printf("%v\n", e)
		if UnderTest {
			panic(e.Error())
		} else {
			os.Exit(1)
		}
	}
}

// Die exits the running process, while logging the given message.
func Die(msg string, params ...interface{}) {
	if UnderTest {
		err := fmt.Sprintf(msg, params...)
		fmt.Print(err)
		panic(err)
	} else {
		if len(params) > 0 {
			fmt.Printf(msg, params...)
		} else {
			fmt.Println(msg)
		}
		os.Exit(1)
	}
}

/*
	NewCommand creates a base command instance, wrapping a new Cobra command.
	The	exec function is invoked when the command's Execute method is called.
*/
func NewCommand(use, short, long, helpEpilogue string,
	exec func() error) *Command {

	ret := Command{
		cmd: &cobra.Command{
			Use:   use,
			Short: short,
			Long:  long,
			RunE: func(*cobra.Command, []string) error {
				return exec()
			},
			SilenceErrors:         true,
			SilenceUsage:          true,
			DisableFlagsInUseLine: true,
		},
		settings:     map[string]*setting{},
		helpEpilogue: helpEpilogue,
	}
	ret.helpFunc = ret.cmd.HelpFunc()
	ret.cmd.SetHelpFunc(ret.help)
	return &ret
}

/*
	Command is a wrapper around Cobra & Viper. It binds each setting to a
	command line flag and optionally an environment variable, with the flag
	taking precedence, and gives an error message that names both when a
	required setting is missing.
*/
type Command struct {
	//
	cmd *cobra.Command
	//
	settings map[string]*setting
	//
	Args []string
	//
	helpEpilogue string
	helpFunc     func(*cobra.Command, []string)
}

//
func (c *Command) help(cmd *cobra.Command, args []string) {
	if c.helpFunc != nil {
		c.helpFunc(cmd, args)
	}
	if c.helpEpilogue != "" {
		fmt.Fprintln(cmd.OutOrStdout(), epilogueHeader+c.helpEpilogue)
	} else {
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

/*
	Execute invokes the exec function that was set on this command when it was
	created. If args is of non-zero length, it overrides os.Args.
*/
func (c *Command) Execute(args []string) error {
	if len(args) > 0 {
		c.cmd.SetArgs(args)
	}
	return c.cmd.Execute()
}

/*
	AddStringSetting adds a string valued setting to this command. Target is
	a pointer to the variable to which the setting should be bound. Flag
	specifies the long (double-dash) command line flag for the setting, short
	its short (single-dash) version, and env the name of the environment
	variable that may carry this setting. def is the default value, help
	carries online help info about this setting, and required specifies
	whether this is a mandatory setting.
*/
func (c *Command) AddStringSetting(
	target *string, flag, short, env, def, help string, required bool) {
	c.cmd.Flags().StringVarP(target, flag, short, def, helpMsg(help, env))
	c.bind(c.cmd.Flags().Lookup(flag), env, required,
		func() {
			if v := viper.GetString(flag); v != "" {
				*target = v
			}
		},
		func() bool { return *target == "" })
}

// AddIntSetting is AddStringSetting for int valued settings.
func (c *Command) AddIntSetting(target *int, flag, short, env string,
	def int, help string, required bool) {
	c.cmd.Flags().IntVarP(target, flag, short, def, helpMsg(help, env))
	c.bind(c.cmd.Flags().Lookup(flag), env, required,
		func() {
			if viper.IsSet(flag) {
				*target = viper.GetInt(flag)
			}
		},
		func() bool { return *target == 0 })
}

// AddBoolSetting is AddStringSetting for bool valued settings, which
// cannot be required.
func (c *Command) AddBoolSetting(
	target *bool, flag, short, env string, def bool, help string) {
	c.cmd.Flags().BoolVarP(target, flag, short, def, helpMsg(help, env))
	c.bind(c.cmd.Flags().Lookup(flag), env, false,
		func() {
			if viper.IsSet(flag) {
				*target = viper.GetBool(flag)
			}
		},
		nil)
}

//
func helpMsg(help, env string) string {
	if env != "" {
		return fmt.Sprintf("%s (%s)", help, env)
	}
	return help
}

//
func (c *Command) bind(
	fl *pflag.Flag, env string, required bool, get func(), missing func() bool) {

	log.Tracef("add setting: flag=%s, env=%s", fl.Name, env)

	viper.BindPFlag(fl.Name, fl)
	if env != "" {
		viper.BindEnv(fl.Name, env)
	}

	c.settings[fl.Name] = &setting{
		flag:     fl.Name,
		env:      env,
		required: required,
		get:      get,
		missing:  missing,
	}
}

/*
	ParseSettings handles all settings that have been added thus far via the
	Add*Setting methods. Afterwards, setting values are available in the
	variables to which they were bound. This should be called in the exec
	function that was set on this command when it was created, before any
	references to variables that are bound to settings.
*/
func (c *Command) ParseSettings() {
	for _, s := range c.settings {
		DieOnError(s.resolve())
	}
	c.Args = c.cmd.Flags().Args()
}

//
type setting struct {
	flag     string
	env      string
	required bool
	get      func()
	missing  func() bool
}

/*
	resolve pulls the setting's value from Viper into its bound variable.
	Viper's BindEnv does not fill the flag's target variable itself, so
	values coming in via environment variable have to be copied over here.
*/
func (s *setting) resolve() error {

	s.get()
	log.Tracef("setting %s resolved", s.flag)

	if s.required && s.missing != nil && s.missing() {
		msg := fmt.Sprintf(
			"you need to specify the --%s command line flag", s.flag)
		if s.env != "" {
			msg = fmt.Sprintf("%s or the %s environment variable", msg, s.env)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}
