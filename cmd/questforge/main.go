// QuestForge designs solvable quests for generated interactive-fiction
// worlds and verifies, move by move, that play still leads to a win.
// Usage: questforge [--version] [--plain] [--script <file>] [--trace]
// [--seed N] [--depth N] [--breadth N] [--backward] <quest_directory>
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nathoo/questforge/cli"
	"github.com/nathoo/questforge/engine"
	"github.com/nathoo/questforge/engine/progress"
	"github.com/nathoo/questforge/loader"
	"github.com/nathoo/questforge/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	trace := false
	backward := false
	var questDir string
	var scriptFile string
	seed, depth, breadth := -1, 0, 0

	args := os.Args[1:]
	intArg := func(i *int, name string) int {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", name)
			os.Exit(1)
		}
		*i++
		n, err := strconv.Atoi(args[*i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		return n
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("questforge %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--backward":
			backward = true
		case "--seed":
			seed = intArg(&i, "--seed")
		case "--depth":
			depth = intArg(&i, "--depth")
		case "--breadth":
			breadth = intArg(&i, "--breadth")
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		default:
			if questDir == "" {
				questDir = args[i]
			}
		}
	}

	if questDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: questforge [--version] [--plain] [--script <file>] [--trace] [--seed N] [--depth N] [--breadth N] [--backward] <quest_directory>\n")
		os.Exit(1)
	}

	// Load and compile Lua quest content.
	defs, err := loader.Load(questDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading quest: %v\n", err)
		os.Exit(1)
	}

	// Flags override the quest's suggested chaining options.
	opts := defs.Options
	if seed >= 0 {
		opts.Seed = int64(seed)
	}
	if depth > 0 {
		opts.MaxDepth = depth
	}
	if breadth > 0 {
		opts.MaxBreadth = breadth
	}
	if backward {
		opts.Backward = true
	}

	quest, err := engine.Design(defs.Initial, defs.Goal, opts, progress.Options{
		Seed:     opts.Seed,
		FailWhen: defs.FailWhen,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error designing quest: %v\n", err)
		os.Exit(1)
	}
	if trace {
		fmt.Fprintf(os.Stderr, "chain %s\nsearch %s\n", quest.Chain, quest.Stats)
	}

	// Script playback and plain mode use the line-oriented CLI.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(quest, defs.Quest)
		c.In = f
		c.Trace = trace
		c.EchoInput = true
		c.Run()
		return
	}
	if plain {
		c := cli.New(quest, defs.Quest)
		c.Trace = trace
		c.Run()
		return
	}

	if err := tui.Run(quest, defs.Quest); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
