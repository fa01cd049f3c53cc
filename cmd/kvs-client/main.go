/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/launix-de/kvs/internal/client"
	"github.com/launix-de/kvs/internal/config"
)

func main() {
	cfg, rest, err := config.ParseClient(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if cfg.Interactive {
		runInteractive(cfg.Addr)
		return
	}

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client <get KEY | set KEY VALUE | rm KEY> [--addr IP:PORT]")
		os.Exit(1)
	}

	c, err := client.Dial(cfg.Addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if !runCommand(c, rest) {
		os.Exit(1)
	}
}

// runCommand executes one get/set/rm invocation against c, printing the
// result the way a shell pipeline expects: a bare value or nothing on
// stdout, an error message on stderr. It returns false if the command
// failed.
func runCommand(c *client.Client, args []string) bool {
	switch args[0] {
	case "get":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: get KEY")
			return false
		}
		value, err := c.Get(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		if value != "" {
			fmt.Println(value)
		}
		return true

	case "set":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: set KEY VALUE")
			return false
		}
		if err := c.Set(args[1], args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		return true

	case "rm":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: rm KEY")
			return false
		}
		if err := c.Remove(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		return true

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return false
	}
}

// runInteractive is a readline prompt over one reused connection, echoing
// the same get/set/rm grammar the one-shot invocation accepts.
func runInteractive(addr string) {
	c, err := client.Dial(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	rl, err := readline.New(fmt.Sprintf("kvs(%s)> ", addr))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl-D) or readline.ErrInterrupt (Ctrl-C)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runCommand(c, strings.Fields(line))
	}
}
