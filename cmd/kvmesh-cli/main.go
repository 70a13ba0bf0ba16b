package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/client"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

func main() {
	app := &cli.App{
		Name:      "kvmesh-cli",
		Usage:     "command-line client for kvmesh-server",
		Version:   buildinfo.String(),
		ArgsUsage: "[command [arg ...]]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "server address",
				EnvVars: []string{"KVMESH_SERVER"},
				Value:   "localhost:6379",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "dial timeout",
				Value: 5 * time.Second,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cl, err := client.Dial(c.String("server"), c.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.String("server"), err)
	}
	defer cl.Close()

	// One-shot mode: command given on the command line.
	if c.Args().Len() > 0 {
		reply, err := cl.Do(c.Args().Slice()...)
		if err != nil {
			return err
		}
		printReply(reply, "")
		return nil
	}

	return repl(c, cl)
}

// repl reads commands interactively until EOF or "quit".
func repl(c *cli.Context, cl *client.Client) error {
	fmt.Printf("connected to %s\n", c.String("server"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("kvmesh> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if cmd := strings.ToLower(fields[0]); cmd == "quit" || cmd == "exit" {
			return nil
		}

		reply, err := cl.Do(fields...)
		if err != nil {
			fmt.Printf("(error) %v\n", err)
			continue
		}
		printReply(reply, "")
	}
}

func printReply(reply any, indent string) {
	switch v := reply.(type) {
	case nil:
		fmt.Println(indent + "(nil)")
	case string:
		fmt.Println(indent + v)
	case int64:
		fmt.Printf("%s(integer) %d\n", indent, v)
	case []byte:
		fmt.Printf("%s%q\n", indent, v)
	case []any:
		if len(v) == 0 {
			fmt.Println(indent + "(empty array)")
			return
		}
		for i, elem := range v {
			fmt.Printf("%s%d) ", indent, i+1)
			printReply(elem, "")
		}
	default:
		fmt.Printf("%s%v\n", indent, v)
	}
}
