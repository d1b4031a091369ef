package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"imagesearch/internal/biz"
	"imagesearch/internal/conf"
	"imagesearch/internal/data/postgres/sqlc"
	"imagesearch/internal/pkg/keywords"
	"imagesearch/internal/pkg/storage"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisCache,
	NewBadger,
	NewBlacklistRepo,
	NewPostRepo,
	NewEmbeddingRepo,
	NewKeywordCacheRepo,
	NewContentStore,
	wire.Bind(new(biz.ContentStore), new(*storage.Local)),
	NewProviders,
	NewClipPool,
	NewEmbedder,
	NewScorer,
	NewKeywordExtractor,
)

// Data struct for db client
type Data struct {
	Pool    *pgxpool.Pool // pgxpool for sqlc (pgx/v5)
	Queries *sqlc.Queries // sqlc generated queries
	DB      *sql.DB       // database/sql for migrations
}

// NewData new a data instance
func NewData(conf *conf.Data, logger log.Logger) (*Data, func(), error) {
	log := log.NewHelper(logger)
	if conf.GetDatabase() == nil {
		return nil, nil, fmt.Errorf("data.database is not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgxConfig, err := newPgxPoolConfig(conf)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	// database/sql handle for migrations
	db, err := sql.Open(conf.Database.Driver, conf.Database.Source)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := RunMigrate(conf, db); err != nil {
		pool.Close()
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	cleanup := func() {
		log.Info("closing db connections")
		pool.Close()
		db.Close()
	}

	return &Data{
		Pool:    pool,
		Queries: sqlc.New(pool),
		DB:      db,
	}, cleanup, nil
}

// newPgxPoolConfig creates a pgxpool.Config from conf.Data
func newPgxPoolConfig(conf *conf.Data) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(conf.Database.Source)
	if err != nil {
		return nil, err
	}
	pool := conf.Database.Pool
	if pool == nil {
		return cfg, nil
	}
	if pool.MaxOpenConns > 0 {
		cfg.MaxConns = pool.MaxOpenConns
	}
	if pool.MinIdleConns > 0 {
		cfg.MinConns = pool.MinIdleConns
	}
	if pool.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = time.Duration(pool.MaxConnLifetime) * time.Minute
	}
	if pool.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = time.Duration(pool.MaxConnIdleTime) * time.Minute
	}

	return cfg, nil
}

// NewContentStore opens the local image store under storage.upload_dir.
func NewContentStore(c *conf.Storage) (*storage.Local, error) {
	dir := "./uploads"
	if c != nil && c.UploadDir != "" {
		dir = c.UploadDir
	}
	return storage.NewLocal(dir)
}

// NewKeywordExtractor returns the RAKE extractor used to split queries.
func NewKeywordExtractor() biz.KeywordExtractor {
	return keywords.NewExtractor()
}
