// Command kvstore-cli is a thin operator front end over package kvstore: a
// set of one-shot subcommands plus an interactive loop for exploring a
// store directory without writing Go.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/gholt/kvstore"
)

type options struct {
	Dir string `short:"d" long:"dir" description:"Store directory" default:"." env:"KVSTORE_DIR"`
}

var opts options

func openStore() (*kvstore.Store, error) {
	return kvstore.Open(opts.Dir)
}

type getCommand struct {
	Positional struct {
		Key string `positional-arg-name:"key" required:"yes"`
	} `positional-args:"yes"`
}

func (c *getCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return runGet(s, c.Positional.Key)
}

func runGet(s *kvstore.Store, key string) error {
	value, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Key not found")
		return nil
	}
	fmt.Println(value)
	return nil
}

type setCommand struct {
	Positional struct {
		Key   string `positional-arg-name:"key" required:"yes"`
		Value string `positional-arg-name:"value" required:"yes"`
	} `positional-args:"yes"`
}

func (c *setCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return runSet(s, c.Positional.Key, c.Positional.Value)
}

func runSet(s *kvstore.Store, key, value string) error {
	if err := s.Set(key, value); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

type rmCommand struct {
	Positional struct {
		Key string `positional-arg-name:"key" required:"yes"`
	} `positional-args:"yes"`
}

func (c *rmCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return runRemove(s, c.Positional.Key)
}

func runRemove(s *kvstore.Store, key string) error {
	if err := s.Remove(key); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

type lsCommand struct{}

func (c *lsCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	runLs(s)
	return nil
}

func runLs(s *kvstore.Store) {
	for _, key := range s.Keys() {
		fmt.Println(key)
	}
}

type statsCommand struct {
	Debug bool `long:"debug" description:"Include per-generation detail"`
}

func (c *statsCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Println(s.Stats(c.Debug).String())
	return nil
}

type replCommand struct{}

func (c *replCommand) Execute(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return runRepl(s, os.Stdin, os.Stdout)
}

func replHelp(w *os.File) {
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  get <key>")
	fmt.Fprintln(w, "  set <key> <value>")
	fmt.Fprintln(w, "  rm <key>")
	fmt.Fprintln(w, "  ls")
	fmt.Fprintln(w, "  stats [debug]")
	fmt.Fprintln(w, "  exit")
}

// runRepl drives an interactive session against an already-open store,
// one line per command, until the input is exhausted or "exit"/"quit" is
// read.
func runRepl(s *kvstore.Store, in *os.File, out *os.File) error {
	replHelp(out)
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "help":
			replHelp(out)
		case "get":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: get <key>")
			} else if err := runGet(s, fields[1]); err != nil {
				fmt.Fprintf(out, "get error: %v\n", err)
			}
		case "set":
			if len(fields) < 3 {
				fmt.Fprintln(out, "usage: set <key> <value>")
			} else if err := runSet(s, fields[1], strings.Join(fields[2:], " ")); err != nil {
				fmt.Fprintf(out, "set error: %v\n", err)
			}
		case "rm":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: rm <key>")
			} else if err := runRemove(s, fields[1]); err != nil {
				fmt.Fprintf(out, "rm error: %v\n", err)
			}
		case "ls":
			runLs(s)
		case "stats":
			debug := len(fields) > 1 && fields[1] == "debug"
			fmt.Fprintln(out, s.Stats(debug).String())
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintln(out, "unknown command:", fields[0])
			replHelp(out)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("get", "Look up a key", "Print the value stored for a key, or \"Key not found\".", &getCommand{})
	parser.AddCommand("set", "Store a key/value pair", "Store (or overwrite) the value for a key.", &setCommand{})
	parser.AddCommand("rm", "Remove a key", "Remove a key; fails if the key does not exist.", &rmCommand{})
	parser.AddCommand("ls", "List all keys", "Print every live key, one per line.", &lsCommand{})
	parser.AddCommand("stats", "Print store statistics", "Print key count, generation count, and wasted-byte accounting.", &statsCommand{})
	parser.AddCommand("repl", "Start an interactive session", "Run get/set/rm/ls/stats against one open store without reopening it each time.", &replCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
