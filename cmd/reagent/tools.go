package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func toolsCommand() *cli.Command {
	var tools toolConfig

	return &cli.Command{
		Name:  "tools",
		Usage: "List the tools available to the agent",
		Flags: tools.flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry, closeTools, err := tools.buildRegistry(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeTools() }()

			for _, spec := range registry.Specs() {
				if _, err := fmt.Fprintln(writer(cmd), spec.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
