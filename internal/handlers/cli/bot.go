package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabapcia/walletbot/internal/relay"

	"github.com/urfave/cli/v3"
)

// startBotCommand runs the scan loop and the chat poller.
//
//	walletbot start
//
// The process runs until it receives SIGINT or SIGTERM or ctx is done.
func startBotCommand(rs relay.Service) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Starts the wallet scan loop and the Telegram command poller.",
		Usage:       "Runs the bot. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rs.Start(ctx); err != nil {
				return err
			}
			defer rs.Close()

			<-ctx.Done()
			return nil
		},
	}
}
