package explorer

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/infra/storage/file"
	"github.com/gabapcia/walletbot/internal/scanloop"
	"github.com/gabapcia/walletbot/internal/subscribers"
	"github.com/gabapcia/walletbot/internal/walletregistry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatLog struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (l *chatLog) SendMessage(_ context.Context, chatID int64, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sent == nil {
		l.sent = make(map[int64][]string)
	}
	l.sent[chatID] = append(l.sent[chatID], text)
	return nil
}

func (l *chatLog) messages(chatID int64) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent[chatID]
}

// The explorer indexes block 105 only after the node already reports it as
// the head, so the transaction shows up one cycle late.
func TestScanLoop_IndexerBehindHead(t *testing.T) {
	var heads atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		switch q.Get("module") {
		case "proxy":
			if heads.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x69"}`))
				return
			}
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x6e"}`))
		case "account":
			if heads.Load() < 2 {
				_, _ = w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[
				{"blockNumber":"105","hash":"0xlate","from":"0xdef","to":"0xabc","value":"1000000000000000000","isError":"0"}
			]}`))
		}
	})

	store, err := file.New(t.TempDir())
	require.NoError(t, err)

	wallets := walletregistry.New(chain.NewRegistry(chain.Ethereum), store)
	_, err = wallets.StartWatching(t.Context(), "eth", "0xABC")
	require.NoError(t, err)

	subs := subscribers.New()
	subs.Register(1, 10)

	chat := &chatLog{}
	loop, err := scanloop.New(
		[]scanloop.Network{{Chain: chain.Ethereum, Blockchain: c, Confirmations: 5}},
		wallets,
		subs,
		chat,
		scanloop.WithCheckpointStorage(store),
	)
	require.NoError(t, err)

	loop.ScanOnce(t.Context())

	height, err := store.LoadLatestCheckpoint(t.Context(), chain.Ethereum.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), height)
	assert.Empty(t, chat.messages(10))

	loop.ScanOnce(t.Context())

	height, err = store.LoadLatestCheckpoint(t.Context(), chain.Ethereum.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), height)

	msgs := chat.messages(10)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "https://etherscan.io/tx/0xlate")
}
