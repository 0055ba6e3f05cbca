package main

import (
	"context"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/export"
	"github.com/integrii/flaggy"
	"github.com/samber/lo"
)

type command struct {
	sub *flaggy.Subcommand
	// needsConfig commands fail on a missing or invalid config file
	needsConfig bool
	run         func(ctx context.Context, a *app) error
}

type commands []*command

// used returns the command given on the command line, or nil.
func (cs commands) used() *command {
	c, ok := lo.Find(cs, func(c *command) bool { return c.sub.Used })
	if !ok {
		return nil
	}
	return c
}

// paths joins a positional path with the paths given after --.
func paths(first string) []string {
	return append([]string{first}, flaggy.TrailingArguments...)
}

// newCommands registers the subcommands and their flags with flaggy.
func newCommands() commands {
	var (
		down         bool
		importDir    string
		path         string
		other        string
		format       string
		outDir       string
		output       string
		noUnfinished bool
		ctxName      string
		source       string
		comment      string
		locale       string
	)

	initDb := flaggy.NewSubcommand("init-db")
	initDb.Description = "Create or upgrade the database schema"
	initDb.Bool(&down, "", "down", "Revert every migration instead")

	imp := flaggy.NewSubcommand("import")
	imp.Description = "Import the catalog files of catalog.import_path into the database"
	imp.String(&importDir, "d", "dir", "Import from this directory instead")

	serve := flaggy.NewSubcommand("serve")
	serve.Description = "Serve the JSON API"

	check := flaggy.NewSubcommand("check")
	check.Description = "Validate TS files; more paths can follow --"
	check.AddPositionalValue(&path, "path", 1, true, "A TS file or a directory of them")

	stats := flaggy.NewSubcommand("stats")
	stats.Description = "Print the translation progress of catalog files; more paths can follow --"
	stats.AddPositionalValue(&path, "path", 1, true, "A catalog file or a directory of them")

	diff := flaggy.NewSubcommand("diff")
	diff.Description = "Compare the messages of two catalog files"
	diff.AddPositionalValue(&path, "a", 1, true, "First catalog file")
	diff.AddPositionalValue(&other, "b", 2, true, "Second catalog file")

	convert := flaggy.NewSubcommand("convert")
	convert.Description = "Write a catalog file in another format"
	convert.AddPositionalValue(&path, "file", 1, true, "Catalog file to convert")
	convert.String(&format, "f", "format", "One of "+lo.Reduce(export.Formats(), func(agg string, f string, i int) string {
		if i == 0 {
			return f
		}
		return agg + ", " + f
	}, ""))
	convert.String(&outDir, "o", "out", "Directory to write to (default: catalog.export_path)")

	compile := flaggy.NewSubcommand("compile")
	compile.Description = "Compile a catalog file to the binary QM format"
	compile.AddPositionalValue(&path, "file", 1, true, "Catalog file to compile")
	compile.String(&output, "o", "out", "QM file to write (default: next to the input)")
	compile.Bool(&noUnfinished, "n", "nounfinished", "Leave out translations marked unfinished")

	translate := flaggy.NewSubcommand("translate")
	translate.Description = "Look up a single message in a catalog file or a directory of catalogs"
	translate.AddPositionalValue(&path, "path", 1, true, "Catalog file, or directory searched by translator.locale")
	translate.String(&ctxName, "c", "context", "Context of the message (default: ppqgis)")
	translate.String(&source, "s", "source", "Source text")
	translate.String(&comment, "m", "comment", "Disambiguating comment")
	translate.String(&locale, "l", "locale", "Locale to load from a directory (default: translator.locale)")

	help := flaggy.NewSubcommand("help")
	help.Description = "Print usage instructions"

	cs := commands{
		{sub: initDb, needsConfig: true, run: func(ctx context.Context, a *app) error {
			return a.initDb(down)
		}},
		{sub: imp, needsConfig: true, run: func(ctx context.Context, a *app) error {
			if err := a.config.ApplyOverrides(config.Config{Catalog: config.CatalogConfig{ImportPath: importDir}}); err != nil {
				return err
			}
			return a.importCatalogs()
		}},
		{sub: serve, needsConfig: true, run: func(ctx context.Context, a *app) error {
			return a.serve(ctx)
		}},
		{sub: check, run: func(ctx context.Context, a *app) error {
			return a.check(paths(path))
		}},
		{sub: stats, run: func(ctx context.Context, a *app) error {
			return a.stats(paths(path))
		}},
		{sub: diff, run: func(ctx context.Context, a *app) error {
			return a.diff(path, other)
		}},
		{sub: convert, run: func(ctx context.Context, a *app) error {
			return a.convert(path, format, outDir)
		}},
		{sub: compile, run: func(ctx context.Context, a *app) error {
			return a.compile(path, output, noUnfinished)
		}},
		{sub: translate, run: func(ctx context.Context, a *app) error {
			if locale != "" {
				a.config.Translator.Locale = locale
			}
			return a.translate(path, ctxName, source, comment)
		}},
		{sub: help, run: func(ctx context.Context, a *app) error {
			flaggy.ShowHelp("")
			return nil
		}},
	}

	for _, c := range cs {
		flaggy.AttachSubcommand(c.sub, 1)
	}

	return cs
}
