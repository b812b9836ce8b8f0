package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/pingcap-incubator/tinykv-client/rawkv"
)

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive raw kv shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRawClient(func(ctx context.Context, c *rawkv.Client) error {
				return shellLoop(c)
			})
		},
	}
}

func shellLoop(c *rawkv.Client) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "tinykv> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := runShellLine(c, strings.Fields(strings.TrimSpace(line))); err != nil {
			if err == errShellExit {
				return nil
			}
			fmt.Println(err)
		}
	}
}

var errShellExit = fmt.Errorf("exit")

func runShellLine(c *rawkv.Client, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx := context.Background()
	switch strings.ToLower(fields[0]) {
	case "get":
		if len(fields) != 2 {
			return fmt.Errorf("usage: get key")
		}
		v, err := c.Get(ctx, []byte(fields[1]))
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", v)
	case "put":
		if len(fields) != 3 {
			return fmt.Errorf("usage: put key value")
		}
		return c.Put(ctx, []byte(fields[1]), []byte(fields[2]))
	case "delete":
		if len(fields) != 2 {
			return fmt.Errorf("usage: delete key")
		}
		return c.Delete(ctx, []byte(fields[1]))
	case "scan":
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("usage: scan start [end]")
		}
		var end []byte
		if len(fields) == 3 {
			end = []byte(fields[2])
		}
		keys, values, err := c.Scan(ctx, []byte(fields[1]), end, 100)
		if err != nil {
			return err
		}
		for i := range keys {
			fmt.Printf("%s\t%s\n", keys[i], values[i])
		}
	case "exit", "quit":
		return errShellExit
	case "help":
		fmt.Println("commands: get, put, delete, scan, exit")
	default:
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return nil
}
