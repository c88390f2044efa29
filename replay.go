package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
	"github.com/wricardo/mcp-training/daifugo/game/session"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "re-run an archived session transcript and print the resulting state",
		ArgsUsage: "<session.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "policy",
				Usage: "selection policy on hand replacement (clear or intersect)",
				Value: string(selection.PolicyClear),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the state as JSON",
			},
		},
		Action: runReplay,
	}
}

func runReplay(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("transcript file required", 2)
	}
	policy, err := selection.ParsePolicy(cmd.String("policy"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := session.ReadRecord(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result := session.Replay(rec.Transcript, policy)
	out := writer(cmd)

	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.State)
	}

	fmt.Fprintf(out, "session %s: %s in %s\n", rec.ID, rec.Player, rec.Room)
	fmt.Fprintf(out, "messages: %d in, %d out, %d rejected\n", result.Inbound, result.Outbound, len(result.Failures))
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  rejected: %v\n", f)
	}
	printState(out, result.State, rec.Player)
	return nil
}
