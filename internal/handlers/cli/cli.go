package cli

import (
	"context"
	"os"

	"github.com/gabapcia/walletbot/internal/relay"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/urfave/cli/v3"
)

// Run executes the walletbot CLI with os.Args.
//
// Commands:
//
//   - `start`: runs the bot until SIGINT or SIGTERM.
//   - `watch`, `unwatch`, `list`: manage watched wallets without the chat.
func Run(ctx context.Context, wr walletregistry.Service, rs relay.Service) error {
	return newApp(wr, rs).Run(ctx, os.Args)
}

func newApp(wr walletregistry.Service, rs relay.Service) *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Name:                  "walletbot",
		Description:           "Telegram bot that reports transactions of watched wallets.",
		Usage:                 "walletbot [command] [flags]",
		Commands: []*cli.Command{
			startBotCommand(rs),
			startWatchingWalletCommand(wr),
			stopWatchingWalletCommand(wr),
			listWalletsCommand(wr),
		},
	}
}
