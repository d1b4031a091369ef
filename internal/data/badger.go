package data

import (
	"fmt"
	"os"

	"imagesearch/internal/conf"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-kratos/kratos/v2/log"
)

// badgerLogger routes badger's internal logging through kratos.
type badgerLogger struct {
	log *log.Helper
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.log.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.log.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.log.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.log.Debugf(msg, args...) }

// NewBadger opens the embedding database. An empty path or in_memory opens
// an in-memory instance.
func NewBadger(c *conf.Data, logger log.Logger) (*badger.DB, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data/badger"))

	bc := c.GetBadger()
	var opts badger.Options
	if bc == nil || bc.InMemory || bc.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(bc.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(bc.Path)
	}
	opts.Logger = &badgerLogger{log: helper}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open badger: %w", err)
	}

	cleanup := func() {
		helper.Info("closing badger")
		if err := db.Close(); err != nil {
			helper.Errorf("close badger: %v", err)
		}
	}
	return db, cleanup, nil
}
