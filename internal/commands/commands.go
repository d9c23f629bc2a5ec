// Package commands turns chat commands into wallet registry and subscriber
// operations and renders the replies.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/pkg/validator"
	"github.com/gabapcia/walletbot/internal/walletregistry"
)

// Request is an incoming chat message.
type Request struct {
	UserID int64
	ChatID int64
	Text   string
}

// SubscriberRegistrar records who should receive notifications.
type SubscriberRegistrar interface {
	Register(userID, chatID int64) bool
}

// Handler executes chat commands.
type Handler struct {
	wallets     walletregistry.Service
	subscribers SubscriberRegistrar
	chains      *chain.Registry
}

// New creates a Handler.
func New(wallets walletregistry.Service, subs SubscriberRegistrar, chains *chain.Registry) *Handler {
	return &Handler{
		wallets:     wallets,
		subscribers: subs,
		chains:      chains,
	}
}

// parse splits "/cmd@BotName arg1 arg2" into a lowercase command name and its
// arguments. ok is false for text that is not a command.
func parse(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	return strings.ToLower(name), fields[1:], name != ""
}

// Handle executes the command in req and returns the reply. Any command
// registers the sender as a subscriber. Plain text gets no reply.
func (h *Handler) Handle(ctx context.Context, req Request) string {
	name, args, ok := parse(req.Text)
	if !ok {
		return ""
	}

	ctx = logger.Derive(ctx, "chat.user_id", req.UserID, "chat.id", req.ChatID, "command.name", name)

	if h.subscribers.Register(req.UserID, req.ChatID) {
		logger.Info(ctx, "subscriber registered")
	}

	switch name {
	case "start", "help":
		return h.welcome()
	case "add":
		return h.add(ctx, args)
	case "remove":
		return h.remove(ctx, args)
	case "list":
		return h.list(ctx, args)
	}

	return h.welcome()
}

func (h *Handler) symbolsHint(sep string) string {
	return strings.Join(h.chains.Symbols(), sep)
}

func (h *Handler) symbolOf(id chain.ID) string {
	c, err := h.chains.Lookup(id)
	if err != nil {
		return strings.ToUpper(string(id))
	}
	return c.Symbol
}

func (h *Handler) welcome() string {
	example := "ETH"
	if symbols := h.chains.Symbols(); len(symbols) > 0 {
		example = symbols[0]
	}

	return fmt.Sprintf(`👋 Welcome to the Wallet Monitoring Bot! 🚀

Use /add <blockchain> <wallet_address> to add a wallet to monitor. 🕵️
Example: /add %[1]s <wallet_address>

Use /remove <blockchain> <wallet_address> to stop monitoring. 🗑️
Example: /remove %[1]s <wallet_address>

Use /list [blockchain] to list monitored wallets. 📋

Supported blockchains: %[2]s`, example, h.symbolsHint(", "))
}

func (h *Handler) usage(command string) string {
	return fmt.Sprintf("❌ Please provide a blockchain and wallet address.\nUsage: /%s %s <wallet_address>", command, h.symbolsHint("/"))
}

// rejection maps registry errors to user-facing text. It returns "" for
// errors that are not caused by the input.
func (h *Handler) rejection(err error) string {
	switch {
	case errors.Is(err, chain.ErrUnsupportedChain):
		return "❌ Unsupported blockchain. Use: " + h.symbolsHint(" or ")
	case errors.Is(err, validator.ErrValidationFailed):
		return "❌ Invalid wallet address."
	}
	return ""
}

const storageFailureReply = "⚠️ Could not save the change, please try again later."

func (h *Handler) add(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return h.usage("add")
	}

	wallet, err := h.wallets.StartWatching(ctx, args[0], args[1])
	if err != nil {
		if reply := h.rejection(err); reply != "" {
			return reply
		}

		logger.Error(ctx, "failed to add wallet", "error", err)
		return storageFailureReply
	}

	logger.Info(ctx, "wallet added", "wallet.chain", wallet.Chain, "wallet.address", wallet.Address)
	return fmt.Sprintf("✅ Added %s on %s to monitored wallets. 🕵️", wallet.Address, h.symbolOf(wallet.Chain))
}

func (h *Handler) remove(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return h.usage("remove")
	}

	wallet, err := h.wallets.StopWatching(ctx, args[0], args[1])
	switch {
	case errors.Is(err, walletregistry.ErrWalletNotWatched):
		return fmt.Sprintf("⚠️ %s on %s is not being monitored.", wallet.Address, h.symbolOf(wallet.Chain))
	case err != nil:
		if reply := h.rejection(err); reply != "" {
			return reply
		}

		logger.Error(ctx, "failed to remove wallet", "error", err)
		return storageFailureReply
	}

	logger.Info(ctx, "wallet removed", "wallet.chain", wallet.Chain, "wallet.address", wallet.Address)
	return fmt.Sprintf("🗑️ Removed %s on %s from monitored wallets.", wallet.Address, h.symbolOf(wallet.Chain))
}

func (h *Handler) list(ctx context.Context, args []string) string {
	if len(args) > 1 {
		return "❌ Usage: /list [" + h.symbolsHint("/") + "]"
	}

	var filter string
	if len(args) == 1 {
		filter = args[0]
	}

	wallets, err := h.wallets.ListWallets(ctx, filter)
	if err != nil {
		if reply := h.rejection(err); reply != "" {
			return reply
		}

		logger.Error(ctx, "failed to list wallets", "error", err)
		return "⚠️ Could not list wallets, please try again later."
	}

	if len(wallets) == 0 {
		return "⚠️ No wallets are being monitored."
	}

	lines := make([]string, 0, len(wallets)+1)
	lines = append(lines, "📋 Currently monitored wallets:")
	for _, w := range wallets {
		lines = append(lines, "- "+w.String())
	}
	return strings.Join(lines, "\n")
}
