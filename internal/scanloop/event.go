package scanloop

import (
	"context"
	"fmt"
	"html"
	"math/big"
	"strings"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/shopspring/decimal"
)

// Direction tells how a transaction moves funds relative to a watched wallet.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionSelf     Direction = "self"
)

// AllDirections lists every direction in display order.
var AllDirections = []Direction{DirectionIncoming, DirectionOutgoing, DirectionSelf}

// Label is the human readable event type used in notifications.
func (d Direction) Label() string {
	switch d {
	case DirectionIncoming:
		return "Incoming transaction"
	case DirectionOutgoing:
		return "Outgoing transaction"
	case DirectionSelf:
		return "Self transfer"
	}
	return "New transaction"
}

// directionOf classifies tx for wallet. ok is false when the wallet is
// neither sender nor receiver.
func directionOf(wallet walletregistry.WalletIdentifier, tx Transaction) (d Direction, ok bool) {
	from, to := wallet.Matches(tx.From), wallet.Matches(tx.To)
	switch {
	case from && to:
		return DirectionSelf, true
	case from:
		return DirectionOutgoing, true
	case to:
		return DirectionIncoming, true
	}
	return "", false
}

// TransactionEvent is a qualifying transaction of a watched wallet.
type TransactionEvent struct {
	Chain       chain.ID        `json:"chain"`
	Symbol      string          `json:"symbol"`
	Wallet      string          `json:"wallet"`
	Direction   Direction       `json:"direction"`
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	RawValue    *big.Int        `json:"raw_value"`
	Amount      decimal.Decimal `json:"amount"`
	USDValue    decimal.Decimal `json:"usd_value"`
	BlockNumber uint64          `json:"block_number"`
	ExplorerURL string          `json:"explorer_url"`
}

// EventPublisher receives every qualifying event in addition to chat delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
}

// MessageSender delivers HTML formatted text to a chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// formatMessage renders the chat notification for ev.
//
//	📢 Incoming transaction: <a href="https://etherscan.io/tx/0x1">Etherscan</a>
//	👛 Wallet: <code>0xABC</code>
//	💰 Value: 2.000000 ETH ($6000.00)
func formatMessage(c chain.Chain, ev TransactionEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📢 %s: <a href=\"%s\">%s</a>\n",
		ev.Direction.Label(),
		html.EscapeString(ev.ExplorerURL),
		html.EscapeString(c.ExplorerName),
	)
	fmt.Fprintf(&b, "👛 Wallet: <code>%s</code>\n", html.EscapeString(ev.Wallet))
	fmt.Fprintf(&b, "💰 Value: %s %s ($%s)",
		ev.Amount.StringFixed(6),
		c.Symbol,
		ev.USDValue.StringFixed(2),
	)

	return b.String()
}
