// Package main is a command line front end for the catmatch API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/client"
	"github.com/oggyb/catmatch/internal/config"
)

type globals struct {
	baseURL string
	token   string
	uid     string
	timeout time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "catmatchctl",
		Short: "Browse cats, swipe and chat against a catmatch server",
		Long: `catmatchctl talks to the catmatch HTTP API.

Authenticate either with --token, or with --uid to mint a development token
signed with AUTH_SECRET from the environment.

Examples:
  catmatchctl --uid alice cats
  catmatchctl --uid alice swipe sample-whiskers --like
  catmatchctl --uid alice chat follow <matchId>
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.baseURL, "base-url", "http://localhost:5000", "API base URL")
	cmd.PersistentFlags().StringVar(&g.token, "token", os.Getenv("CATMATCH_TOKEN"), "bearer token")
	cmd.PersistentFlags().StringVar(&g.uid, "uid", "", "mint a development token for this user id")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "per-request timeout")

	cmd.AddCommand(tokenCmd(), catsCmd(g), swipeCmd(g), matchesCmd(g), meCmd(g), chatCmd(g))
	return cmd
}

// api builds a client from the global flags.
func (g *globals) api() (*client.Client, error) {
	tok := g.token
	if g.uid != "" {
		var err error
		if tok, err = auth.NewSigner(config.New()).Sign(auth.Principal{UID: g.uid}); err != nil {
			return nil, err
		}
	}
	if tok == "" {
		return nil, errors.New("either --token or --uid is required")
	}
	return client.New(g.baseURL, tok), nil
}

func (g *globals) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <uid>",
		Short: "Print a development token for uid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := auth.NewSigner(config.New()).Sign(auth.Principal{UID: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func catsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cats",
		Short: "List cats still available to swipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			state := client.NewState(api)
			if _, err := state.RefreshMatches(ctx); err != nil {
				return err
			}
			deck, err := state.RefreshCats(ctx)
			if err != nil {
				return err
			}
			if len(deck) == 0 {
				_, msg := state.Available()
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			}
			out := cmd.OutOrStdout()
			for _, c := range deck {
				fmt.Fprintf(out, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, c.Age, c.Breed, c.OwnerName)
			}
			return nil
		},
	}
}

func swipeCmd(g *globals) *cobra.Command {
	var like, pass bool

	cmd := &cobra.Command{
		Use:   "swipe <catId>",
		Short: "Like or pass on a cat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if like == pass {
				return errors.New("exactly one of --like or --pass is required")
			}
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			res, err := api.Swipe(ctx, args[0], like)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&like, "like", false, "like the cat")
	cmd.Flags().BoolVar(&pass, "pass", false, "pass on the cat")
	return cmd
}

func matchesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List matches, most recent activity first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			views, err := api.Matches(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range views {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\tunread=%d\t%s\n",
					m.MatchID, m.Status, m.Cat.Name, m.User.Name, m.UnreadCount, m.LastMessage)
			}
			return nil
		},
	}
}

func meCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the caller's account and cat",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := g.api()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			me, err := api.Me(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, me)
		},
	}
}
