// Copyright 2025 Poiesic Systems
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

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/vocald"
	"github.com/poiesic/vocald/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vocald",
		Usage: "Identify the voices in a folder of call recordings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				EnvVars: []string{"VOCALD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Recordings folder (overrides the config file)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides the config file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the config file and mark every existing recording as seen",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "call-log",
						Usage: "Path to a call-log SQLite export used to date recordings",
					},
					&cli.BoolFlag{
						Name:  "analyse-existing",
						Usage: "Keep existing recordings so the next scan analyses them",
					},
				},
			},
			{
				Name:   "scan",
				Usage:  "Analyse every new recording in the folder",
				Action: scanCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Print plain progress lines instead of a progress bar",
					},
				},
			},
			{
				Name:      "analyse",
				Aliases:   []string{"analyze"},
				Usage:     "Analyse a single audio file",
				ArgsUsage: "<path>",
				Action:    analyseCommand,
			},
			{
				Name:   "watch",
				Usage:  "Scan whenever new recordings appear in the folder",
				Action: watchCommand,
			},
			{
				Name:   "list",
				Usage:  "List recordings, newest call first",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Only show recordings whose filename or phone number contains this text",
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Show a recording and its speakers",
				ArgsUsage: "<recording-id>",
				Action:    showCommand,
			},
			{
				Name:      "rename",
				Usage:     "Name a speaker; every recording of the same voice is renamed too",
				ArgsUsage: "<recording-id> <speaker-index> <name>",
				Action:    renameCommand,
			},
			{
				Name:   "profiles",
				Usage:  "List known voices",
				Action: profilesCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show database statistics",
				Action: statsCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every recording, voice and processed-file record",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the deletion",
					},
				},
			},
		},
	}
}

// configPath returns the --config flag or the default config file location.
func configPath(c *cli.Context) (string, error) {
	if path := c.String("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path, err := configPath(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if folder := c.String("folder"); folder != "" {
		cfg.RecordingsFolder = folder
	}
	if db := c.String("db"); db != "" {
		cfg.DatabasePath = db
	}
	return cfg, nil
}

func openEngine(c *cli.Context) (*vocald.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	engine, err := vocald.Open(c.Context, cfg, vocald.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
