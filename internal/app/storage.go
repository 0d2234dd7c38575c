package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/badgerdb"
	"github.com/vovakirdan/wirechat-channels/internal/store/file"
	"github.com/vovakirdan/wirechat-channels/internal/store/memory"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
)

// openChannelStore picks the channel log backend named by cfg. The sqlite
// backend shares the accounts database unless storage.path names another file.
func openChannelStore(cfg config.Storage, accounts *sqlite.SQLiteStore, accountsPath string, logger *zerolog.Logger) (store.ChannelStore, bool, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn().Msg("channel logs are kept in memory and lost on restart")
		return memory.New(), true, nil
	case "file":
		st, err := file.NewOS(cfg.Path)
		if err != nil {
			return nil, false, fmt.Errorf("open file store: %w", err)
		}
		return st, true, nil
	case "sqlite":
		if cfg.Path == "" || cfg.Path == accountsPath {
			return accounts, false, nil
		}
		st, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, false, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, true, nil
	case "badger":
		st, err := badgerdb.Open(cfg.Path)
		if err != nil {
			return nil, false, fmt.Errorf("open badger store: %w", err)
		}
		return st, true, nil
	default:
		return nil, false, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
