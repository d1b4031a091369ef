package data

import (
	"context"

	"imagesearch/internal/biz"
	"imagesearch/internal/data/postgres/sqlc"

	"github.com/go-kratos/kratos/v2/log"
)

type blacklistRepo struct {
	data *Data
	log  *log.Helper
}

// NewBlacklistRepo .
func NewBlacklistRepo(data *Data, logger log.Logger) biz.BlacklistRepo {
	return &blacklistRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListBlocked implements biz.BlacklistRepo.
func (r *blacklistRepo) ListBlocked(ctx context.Context) ([]*biz.BlacklistEntry, error) {
	rows, err := r.data.Queries.ListBlockedImages(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]*biz.BlacklistEntry, len(rows))
	for i, row := range rows {
		entries[i] = toBizBlacklistEntry(row)
	}
	return entries, nil
}

func toBizBlacklistEntry(m sqlc.BlacklistedImage) *biz.BlacklistEntry {
	e := &biz.BlacklistEntry{
		ID:           m.ID,
		ProviderName: m.ProviderName,
		SourceURL:    m.SourceUrl,
		Status:       biz.BlacklistStatus(m.Status),
		Reason:       m.Reason,
	}
	if m.Phash.Valid {
		v := m.Phash.Int64
		e.PHash = &v
	}
	if m.CreatedAt.Valid {
		e.CreatedAt = m.CreatedAt.Time
	}
	return e
}
