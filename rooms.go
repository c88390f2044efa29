package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/transport/rooms"
)

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "list or create rooms on the room server",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list rooms",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := roomsClient(cmd)
					if err != nil {
						return err
					}
					list, err := client.ListRooms(ctx)
					if err != nil {
						return err
					}

					w := writer(cmd)
					if len(list) == 0 {
						fmt.Fprintln(w, "no rooms")
						return nil
					}
					for _, room := range list {
						fmt.Fprintln(w, room)
					}
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "create a room",
				ArgsUsage: "<room>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					room := cmd.Args().First()
					if room == "" {
						return cli.Exit("room name required", 2)
					}
					client, err := roomsClient(cmd)
					if err != nil {
						return err
					}
					if err := client.CreateRoom(ctx, room); err != nil {
						return err
					}
					fmt.Fprintf(writer(cmd), "created %s\n", room)
					return nil
				},
			},
		},
	}
}

func roomsClient(cmd *cli.Command) (*rooms.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return rooms.NewClient(cfg)
}
