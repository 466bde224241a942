package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oggyb/catmatch/internal/client"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/logger"
)

func chatCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and write messages in a match",
	}
	cmd.AddCommand(chatSendCmd(g), chatReadCmd(g), chatFollowCmd(g))
	return cmd
}

func chatSendCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "send <matchId> <message...>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			msg, err := api.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printMessage(cmd.OutOrStdout(), *msg)
			return nil
		},
	}
}

func chatReadCmd(g *globals) *cobra.Command {
	var markRead bool

	cmd := &cobra.Command{
		Use:   "read <matchId>",
		Short: "Print the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			msgs, _, err := api.Messages(ctx, args[0], "")
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printMessage(cmd.OutOrStdout(), m)
			}
			if markRead {
				return api.MarkRead(ctx, args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", true, "mark the match read afterwards")
	return cmd
}

func chatFollowCmd(g *globals) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "follow <matchId>",
		Short: "Print new messages as they arrive until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			poller := client.NewChatPoller(client.NewState(api), args[0],
				client.WithInterval(interval),
				client.WithLogger(logger.New(logger.Config{Level: "warn", Format: logger.FormatText, Output: os.Stderr})),
				client.OnNew(func(msgs []db.Message) {
					for _, m := range msgs {
						printMessage(out, m)
					}
				}),
			)
			return poller.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "poll interval")
	return cmd
}

func printMessage(w io.Writer, m db.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), m.SenderID, m.Content)
}
