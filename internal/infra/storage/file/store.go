// Package file persists watched wallets and scan watermarks as plain text
// files inside a data directory.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gabapcia/walletbot/internal/chain"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/scanloop"
	"github.com/gabapcia/walletbot/internal/walletregistry"
)

const (
	walletsFileName   = "watched_wallets.txt"
	checkpointPattern = "last_block_%s.txt"
	filePerm          = 0o644
)

type store struct {
	mu  sync.Mutex
	dir string
}

var (
	_ walletregistry.WalletStorage = (*store)(nil)
	_ scanloop.CheckpointStorage   = (*store)(nil)
)

// New returns a store rooted at dir. The directory is created if missing.
func New(dir string) (*store, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &store{dir: dir}, nil
}

func (s *store) walletsPath() string {
	return filepath.Join(s.dir, walletsFileName)
}

func (s *store) checkpointPath(id chain.ID) string {
	return filepath.Join(s.dir, fmt.Sprintf(checkpointPattern, id))
}

// LoadWallets reads one "chain:address" entry per line. A missing file is an
// empty set. Blank lines are ignored and malformed ones are logged and skipped.
func (s *store) LoadWallets(ctx context.Context) ([]walletregistry.WalletIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.walletsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var (
		wallets []walletregistry.WalletIdentifier
		scanner = bufio.NewScanner(bytes.NewReader(data))
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		wallet, err := walletregistry.ParseIdentifier(line)
		if err != nil {
			logger.Warn(ctx, "skipping malformed wallet entry", "file.line", lineNo, "error", err)
			continue
		}

		wallets = append(wallets, wallet)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return wallets, nil
}

// SaveWallets rewrites the wallets file with the given set, one entry per line.
func (s *store) SaveWallets(_ context.Context, wallets []walletregistry.WalletIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	for _, w := range wallets {
		buf.WriteString(w.String())
		buf.WriteByte('\n')
	}

	return writeFileAtomic(s.walletsPath(), buf.Bytes())
}

// SaveCheckpoint overwrites the watermark file of the chain.
func (s *store) SaveCheckpoint(_ context.Context, chainID chain.ID, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.checkpointPath(chainID), []byte(strconv.FormatUint(height, 10)))
}

// LoadLatestCheckpoint returns scanloop.ErrNoCheckpointFound when the chain
// was never scanned.
func (s *store) LoadLatestCheckpoint(_ context.Context, chainID chain.ID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.checkpointPath(chainID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, scanloop.ErrNoCheckpointFound
		}
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint of %s: %w", chainID, err)
	}

	return height, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
