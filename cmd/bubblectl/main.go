package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bowerhall/bubble/internal/client"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/tui"
)

func init() {
	godotenv.Load()
}

type options struct {
	url     string
	session string
	timeout time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "bubblectl",
		Short:        "Talk to a Bubble server from the terminal",
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("BUBBLE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}

	root.PersistentFlags().StringVar(&opts.url, "url", defaultURL, "server base url")
	root.PersistentFlags().StringVar(&opts.session, "session", "", "session id to resume")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "reply timeout")

	root.AddCommand(chatCmd(opts), sendCmd(opts))
	return root
}

func (o *options) client() *client.Client {
	return client.New(client.Config{
		BaseURL:   o.url,
		Timeout:   o.timeout,
		SessionID: o.session,
	})
}

func chatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return tui.Run(ctx, opts.client())
		},
	}
}

func sendCmd(opts *options) *cobra.Command {
	var useSocket bool

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout+5*time.Second)
			defer cancel()

			c := opts.client()
			if useSocket {
				if err := c.Connect(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "websocket unavailable, using http:", err)
				}
				defer c.Close()
			}

			out := cmd.OutOrStdout()

			bus := client.NewBus(mood.Neutral)
			offer := client.NewBreathingOffer(func(prompt string) {
				fmt.Fprintln(out, "\n"+prompt)
			})
			bus.Subscribe(offer.Observe)
			c.SetBus(bus)

			text := strings.Join(args, " ")
			offer.CheckInput(text)

			reply, err := c.Send(ctx, text)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s %s\n", client.AvatarExpression(reply.Mood).Face, reply.Message)
			if sid := c.SessionID(); sid != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "session:", sid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useSocket, "ws", false, "send over the websocket instead of http")
	return cmd
}
