package cli

import (
	"context"
	"fmt"

	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/urfave/cli/v3"
)

func walletFlags(action string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "chain",
			Usage:    "Blockchain identifier (e.g., eth, bnb)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "address",
			Usage:    "Wallet address to " + action,
			Required: true,
		},
	}
}

// startWatchingWalletCommand registers a wallet.
//
//	walletbot watch --chain eth --address 0xABC123...
func startWatchingWalletCommand(wr walletregistry.Service) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Register a wallet to be monitored for transactions on a chain.",
		Usage:       "Registers a wallet address for watching. Must provide both chain and address.",
		Flags:       walletFlags("start watching"),
		Action: func(ctx context.Context, c *cli.Command) error {
			wallet, err := wr.StartWatching(ctx, c.String("chain"), c.String("address"))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.Root().Writer, "watching %s\n", wallet)
			return err
		},
	}
}

// stopWatchingWalletCommand unregisters a wallet.
//
//	walletbot unwatch --chain eth --address 0xABC123...
func stopWatchingWalletCommand(wr walletregistry.Service) *cli.Command {
	return &cli.Command{
		Name:        "unwatch",
		Description: "Unregister a wallet from being monitored on a chain.",
		Usage:       "Stops watching a wallet address. Must provide both chain and address.",
		Flags:       walletFlags("stop watching"),
		Action: func(ctx context.Context, c *cli.Command) error {
			wallet, err := wr.StopWatching(ctx, c.String("chain"), c.String("address"))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.Root().Writer, "stopped watching %s\n", wallet)
			return err
		},
	}
}

// listWalletsCommand prints the watched wallets, one per line.
//
//	walletbot list [--chain bnb]
func listWalletsCommand(wr walletregistry.Service) *cli.Command {
	return &cli.Command{
		Name:        "list",
		Description: "List the wallets being monitored.",
		Usage:       "Prints watched wallets as chain:address, optionally filtered by chain.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "chain",
				Usage: "Only list wallets of this chain",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			wallets, err := wr.ListWallets(ctx, c.String("chain"))
			if err != nil {
				return err
			}

			for _, w := range wallets {
				if _, err := fmt.Fprintln(c.Root().Writer, w.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
