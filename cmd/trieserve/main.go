// Copyright 2026 The TrieServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the trieserve IPC server and debug CLI.

TrieServe stores prefix tries as named values and exposes insert, exact
search and lexicographic autocomplete over them. It can run as a
MessagePack IPC server over stdin/stdout for embedding in a host process,
or as an interactive CLI for testing and debugging.

# Usage

Start the server with default settings:

	trieserve

Run in CLI mode with debug logging:

	trieserve -c -d

Load a snapshot at startup and save it back on shutdown:

	trieserve -snapshot /var/lib/trieserve/store.snap

# Configuration

Runtime configuration is managed through a TOML file, auto-created with
defaults if it doesn't exist:

	[server]
	max_limit = 64
	max_word_len = 60

	[snapshot]
	path = ""
	save_on_exit = false

	[cli]
	default_limit = 24

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. See pkg/server
for the message shapes. A session looks like:

	{"id": "1", "op": "insert", "k": "dict", "a": "cat"}
	{"id": "1", "n": 1, "t": 120}
	{"id": "2", "op": "suggest", "k": "dict", "a": "ca"}
	{"id": "2", "s": ["car", "cart", "cat"], "n": 3, "t": 140}

All engine wiring happens once here at startup; there is no other
process-wide mutable state.
*/
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"

	"github.com/trieserve/trieserve/internal/cli"
	"github.com/trieserve/trieserve/internal/logger"
	"github.com/trieserve/trieserve/internal/snapshot"
	"github.com/trieserve/trieserve/internal/store"
	"github.com/trieserve/trieserve/pkg/config"
	"github.com/trieserve/trieserve/pkg/server"
)

func main() {
	cliMode := flag.Bool("c", false, "run in interactive CLI mode instead of the IPC server")
	debug := flag.Bool("d", false, "enable debug logging")
	configPath := flag.String("config", "", "path to a custom config.toml")
	snapPath := flag.String("snapshot", "", "snapshot file to load at startup and save on shutdown (overrides config)")
	limit := flag.Int("limit", 0, "CLI suggestion limit (overrides config)")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	logg := logger.New("trieserve")

	cfg, cfgPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		logg.Fatalf("loading config: %v", err)
	}
	if cfgPath != "" {
		logg.Debugf("using config at %s", cfgPath)
	}

	path := cfg.Snapshot.Path
	saveOnExit := cfg.Snapshot.SaveOnExit
	if *snapPath != "" {
		path = *snapPath
		saveOnExit = true
	}

	st := store.New()
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			loaded, loadErr := snapshot.LoadFile(path)
			if loadErr != nil {
				logg.Fatalf("loading snapshot %s: %v", path, loadErr)
			}
			st = loaded
			logg.Infof("loaded snapshot from %s", path)
		} else {
			logg.Debugf("no snapshot at %s, starting empty", path)
		}
	}

	if *cliMode {
		suggestLimit := cfg.CLI.DefaultLimit
		if *limit > 0 {
			suggestLimit = *limit
		}
		handler := cli.NewInputHandler(st, suggestLimit, os.Stdout)
		err = handler.Start(os.Stdin)
	} else {
		err = server.NewServer(st, cfg).Start()
	}
	if err != nil {
		logg.Errorf("session ended with error: %v", err)
	}

	if path != "" && saveOnExit {
		if saveErr := snapshot.SaveFile(path, st); saveErr != nil {
			logg.Errorf("saving snapshot to %s: %v", path, saveErr)
			os.Exit(1)
		}
		logg.Infof("saved snapshot to %s", path)
	}
	if err != nil {
		os.Exit(1)
	}
}
