package cmd

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/m96-chan/zterm/internal/app"
	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/consts"
	"github.com/m96-chan/zterm/internal/logger"
	"github.com/m96-chan/zterm/internal/zulip"
)

// Build information, set from main.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Run parses CLI flags, sets up logging and config, and starts the app.
func Run() error {
	configPath := flag.String("config-path", config.DefaultPath(), "path to config file")
	logPath := flag.String("log-path", logger.DefaultPath(), "path to log file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	theme := flag.String("theme", "", "color theme, overriding the config file")
	zuliprc := flag.String("zuliprc", "", "path to a zuliprc file with the account credentials")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("%s %s (%s, %s)\n", consts.Name, Version, Commit, Date)
		return nil
	}

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logFile, err := logger.Setup(*logPath, level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	slog.Info("starting "+consts.Name, "version", Version, "config", *configPath, "log", *logPath)

	cfg, err := config.Load(*configPath, *theme)
	if err != nil {
		var themeErr *config.UnknownThemeError
		if errors.As(err, &themeErr) {
			fmt.Fprintln(os.Stderr, themeErr.Error())
			slog.Error("unknown theme", "name", themeErr.Name)
			return nil
		}
		return err
	}
	if *zuliprc != "" {
		cfg.Zuliprc = *zuliprc
	}

	zulip.UserAgent = consts.Name + "/" + Version
	return app.New(cfg).Run()
}
