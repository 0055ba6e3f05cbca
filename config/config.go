/*
Package config implements TOML config file handling for the translation tools.

Normally it will be used by passing the path found by FindFile to the Load function to obtain a
Config struct. Command line flags are applied on top with ApplyOverrides.
*/
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/OpenPeeDeeP/xdg"
	"github.com/go-errors/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/imdario/mergo"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	DbDriverSqlite3    = "sqlite3"
	DbDriverSqlite     = "sqlite"
	DbDriverPostgresql = "postgres"
	DbDriverMysql      = "mysql"
)

// FileName is the name the config file is looked up by.
const FileName = "translation-api.toml"

// Drivers lists the supported values of database.driver.
var Drivers = []string{DbDriverSqlite3, DbDriverSqlite, DbDriverPostgresql, DbDriverMysql}

// Config represents the parsed configuration.
type Config struct {
	DB         DbConfig         `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Translator TranslatorConfig `toml:"translator"`
	Log        LogConfig        `toml:"log"`
}

// valid checks if the Config is valid in its current state.
func (c *Config) valid() error {
	if !lo.Contains(Drivers, c.DB.Driver) {
		return errors.Errorf("config: invalid database.driver value. (Must be one of: '%v')", strings.Join(Drivers, ", "))
	}
	if c.DB.sqlite() && len(c.DB.File) == 0 {
		return errors.New("config: missing database.file value")
	}
	if !c.DB.sqlite() {
		if len(c.DB.Host) == 0 {
			return errors.New("config: missing database.host value")
		}
		if len(c.DB.Name) == 0 {
			return errors.New("config: missing database.name value")
		}
		if len(c.DB.User) == 0 {
			return errors.New("config: missing database.user value")
		}
		if c.DB.Port < 0 {
			return errors.New("config: invalid database.port value")
		}
	}
	if c.Server.Port < 0 {
		return errors.New("config: server.port is invalid")
	}
	if len(c.Catalog.ImportPath) == 0 {
		return errors.New("config: missing catalog.import_path value")
	}
	if len(c.Catalog.ExportPath) == 0 {
		return errors.New("config: missing catalog.export_path value")
	}
	if len(c.Catalog.Basename) == 0 {
		return errors.New("config: missing catalog.basename value")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("config: invalid log.level value '%v'", c.Log.Level)
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		return errors.Errorf("config: invalid log.format value '%v'. (Must be one of: '%v, %v')", c.Log.Format, LogFormatText, LogFormatJSON)
	}
	return nil
}

// DbConfig contains Database connection configuration.
type DbConfig struct {
	// One of Drivers
	Driver string
	// When driver is sqlite3 or sqlite, this is the path to the database file
	File     string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

func (d *DbConfig) sqlite() bool {
	return d.Driver == DbDriverSqlite3 || d.Driver == DbDriverSqlite
}

func (d *DbConfig) port() int {
	if d.Port > 0 {
		return d.Port
	}
	if d.Driver == DbDriverMysql {
		return 3306
	}
	return 5432
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port that the server should run on.
	Port int
	// Write changed catalogs to catalog.export_path after every modification.
	AutoExport bool `toml:"auto_export"`
}

// CatalogConfig contains catalog import/export configuration.
type CatalogConfig struct {
	// Path to import catalog files from, normally the plugin's i18n directory
	ImportPath string `toml:"import_path"`
	// Path to export catalog files to
	ExportPath string `toml:"export_path"`
	// Common prefix of the catalog files, e.g. pandapower_qgis for pandapower_qgis_de.ts
	Basename string
	// Language the source strings are written in
	SourceLanguage string `toml:"source_language"`
	// Format used when exporting, see the export package
	ExportFormat string `toml:"export_format"`
}

// TranslatorConfig contains runtime lookup configuration.
type TranslatorConfig struct {
	// Locale to load, "auto" to detect it from the environment
	Locale string
	// Languages consulted when the active one has no translation
	Fallbacks []string
}

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string
	Format string
	// Log to this file instead of stderr
	File string
}

// Gets a connection string for this config.
func (d *DbConfig) ConnectionString() string {
	cStr := ""
	switch d.Driver {
	case DbDriverPostgresql:
		cStr = fmt.Sprintf("postgres://%v:%v@%v:%v/%v?sslmode=disable", d.User, d.Password, d.Host, d.port(), d.Name)
	case DbDriverMysql:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.port()))
		mc.DBName = d.Name
		mc.Params = map[string]string{"charset": "utf8mb4"}
		cStr = mc.FormatDSN()
	case DbDriverSqlite3:
		cStr = sqliteDSN(d.File, "_foreign_keys=1")
	case DbDriverSqlite:
		cStr = sqliteDSN(d.File, "_pragma=foreign_keys(1)")
	}
	return cStr
}

func sqliteDSN(file, params string) string {
	if strings.Contains(file, "?") {
		return file
	}
	return file + "?" + params
}

// Creates a new Config with some default values.
func new() Config {
	c := Config{
		DB: DbConfig{
			Driver: DbDriverSqlite3,
			File:   filepath.FromSlash("./translations.db"),
		},
		Server: ServerConfig{
			Port:       8181,
			AutoExport: true,
		},
		Catalog: CatalogConfig{
			ImportPath:     filepath.FromSlash("./i18n"),
			ExportPath:     filepath.FromSlash("./i18n-out"),
			Basename:       "pandapower_qgis",
			SourceLanguage: "en",
			ExportFormat:   "ts",
		},
		Translator: TranslatorConfig{
			Locale: "auto",
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
	return c
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return new()
}

// Loads config from a TOML file and checks its validity.
func Load(file string) (Config, error) {
	conf := new()
	_, err := toml.DecodeFile(file, &conf)
	if err != nil {
		return conf, err
	}

	if err = conf.valid(); err != nil {
		return conf, err
	}

	return conf, nil
}

// FindFile returns the config file to use: the given path when set, then FileName in the working
// directory, then FileName in the user's XDG config directory. It returns "" when none exists.
func FindFile(path string) string {
	if path != "" {
		return path
	}
	local := filepath.FromSlash("./" + FileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return xdg.New("e2nIEE", "ppqgis-translations").QueryConfig(FileName)
}

// LoadOrDefault loads the file FindFile returns, or the defaults when there is none.
func LoadOrDefault(path string) (Config, error) {
	file := FindFile(path)
	if file == "" {
		conf := new()
		return conf, conf.valid()
	}
	return Load(file)
}

// ApplyOverrides merges the non-zero fields of overrides into c and validates the result.
func (c *Config) ApplyOverrides(overrides Config) error {
	if err := mergo.Merge(c, overrides, mergo.WithOverride); err != nil {
		return err
	}
	return c.valid()
}
