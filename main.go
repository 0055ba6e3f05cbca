/*
A tool for managing the translation catalogs of the pandapower QGIS plugin.

It checks, converts and compiles Qt Linguist catalog files, keeps a database of translations that
can be imported from and exported to those files, and serves a JSON API for editing them.

Program settings are read from a TOML config file. The file is looked up at the path given with
--config, then as 'translation-api.toml' in the working directory and finally in the user's XDG
config directory. Only the database commands require one; the others fall back to defaults.

The program must be run with a command argument to indicate what you would like it to do:

  - init-db: Creates or upgrades the database schema.
  - import: Imports the catalog files in the 'import_path' given in the config file.
  - serve: Starts an HTTP server providing a JSON API for the translation data.
  - check: Validates catalog files.
  - stats: Prints translation progress of catalog files.
  - diff: Compares the messages of two catalog files.
  - convert: Writes a catalog file in another format.
  - compile: Compiles a TS file to the binary QM format.
  - translate: Looks up a single message.
  - help: Prints usage instructions
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/e2nIEE/ppqgis-translations/config"
	applog "github.com/e2nIEE/ppqgis-translations/log"
	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
)

var (
	commit  string
	version = "unversioned"

	configPath string
)

func main() {
	applog.Version, applog.Commit = version, commit

	flaggy.SetName("translation-api")
	flaggy.SetDescription("Manage the translation catalogs of the pandapower QGIS plugin")
	flaggy.String(&configPath, "", "config", "Path to the config file (default: "+config.FileName+")")
	flaggy.SetVersion(fmt.Sprintf("%s\nCommit: %s\nOS: %s\nArch: %s", version, commit, runtime.GOOS, runtime.GOARCH))

	cmds := newCommands()
	flaggy.Parse()

	a := newApp(os.Stdout, os.Stderr, configPath)

	cmd := cmds.used()
	if cmd == nil {
		flaggy.ShowHelp("No command given")
		os.Exit(1)
	}

	// Invalid config only matters for commands using the database
	if cmd.needsConfig {
		checkFatal(a.configErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.run(ctx, a)
	if err == errFailed {
		os.Exit(1)
	}
	if err != nil {
		newErr := errors.Wrap(err, 0)
		a.log.Debug(newErr.ErrorStack())
		checkFatal(err)
	}
}

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
