package biz

import (
	"context"
	"slices"
	"strings"
	"time"

	"imagesearch/internal/conf"
	"imagesearch/internal/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

// BlacklistStatus is the moderation state of a blacklist entry.
type BlacklistStatus string

const (
	BlacklistStatusSuspended BlacklistStatus = "suspended"
	BlacklistStatusBlocked   BlacklistStatus = "blocked"
)

// BlacklistEntry is one moderated image. Only blocked entries filter results.
type BlacklistEntry struct {
	ID           int64
	ProviderName string
	SourceURL    string
	Status       BlacklistStatus
	Reason       string
	PHash        *int64
	CreatedAt    time.Time
}

// BlacklistSnapshot is an immutable view of the blocked entries, taken once
// per keyword resolution. A nil snapshot blocks nothing.
type BlacklistSnapshot struct {
	urls        map[string]struct{}
	phashes     []uint64
	maxDistance int
	takenAt     time.Time
}

// NewBlacklistSnapshot indexes the blocked entries. maxDistance is the
// largest Hamming distance at which a perceptual hash still counts as
// blocked.
func NewBlacklistSnapshot(entries []*BlacklistEntry, maxDistance int) *BlacklistSnapshot {
	s := &BlacklistSnapshot{
		urls:        make(map[string]struct{}, len(entries)),
		maxDistance: max(maxDistance, 0),
		takenAt:     time.Now(),
	}
	for _, e := range entries {
		if e == nil || e.Status != BlacklistStatusBlocked {
			continue
		}
		if u := strings.TrimSpace(e.SourceURL); u != "" {
			s.urls[u] = struct{}{}
		}
		if e.PHash != nil {
			s.phashes = append(s.phashes, uint64(*e.PHash))
		}
	}
	return s
}

// BlocksURL reports whether url is blocked.
func (s *BlacklistSnapshot) BlocksURL(url string) bool {
	if s == nil || url == "" {
		return false
	}
	_, ok := s.urls[strings.TrimSpace(url)]
	return ok
}

// BlocksPHash reports whether a blocked perceptual hash lies within the
// configured distance of h.
func (s *BlacklistSnapshot) BlocksPHash(h uint64) bool {
	if s == nil {
		return false
	}
	for _, b := range s.phashes {
		if hash.IsSimilar(b, h, s.maxDistance) {
			return true
		}
	}
	return false
}

// URLs returns the blocked URLs in sorted order.
func (s *BlacklistSnapshot) URLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.urls))
	for u := range s.urls {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of blocked URLs.
func (s *BlacklistSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}

// TakenAt returns when the snapshot was read.
func (s *BlacklistSnapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// BlacklistUsecase reads the blacklist for resolutions.
type BlacklistUsecase struct {
	repo        BlacklistRepo
	maxDistance int
	log         *log.Helper
}

// NewBlacklistUsecase creates a new BlacklistUsecase.
func NewBlacklistUsecase(repo BlacklistRepo, c *conf.Search, logger log.Logger) *BlacklistUsecase {
	return &BlacklistUsecase{
		repo:        repo,
		maxDistance: c.GetPHashDistance(),
		log:         log.NewHelper(logger),
	}
}

// Snapshot reads the current blacklist. Failure is returned as
// ErrBlacklistUnavailable; callers must not proceed without a snapshot.
// A done ctx is reported as ctx.Err() so a deadline is not mistaken for an
// unavailable blacklist.
func (uc *BlacklistUsecase) Snapshot(ctx context.Context) (*BlacklistSnapshot, error) {
	entries, err := uc.repo.ListBlocked(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.log.WithContext(ctx).Errorf("load blacklist: %v", err)
		return nil, ErrBlacklistUnavailable.WithCause(err)
	}
	s := NewBlacklistSnapshot(entries, uc.maxDistance)
	uc.log.WithContext(ctx).Debugf("blacklist snapshot: %d urls, %d phashes", len(s.urls), len(s.phashes))
	return s, nil
}

// filterBlocked drops candidates whose source or image URL is blocked.
func filterBlocked(images []*CandidateImage, s *BlacklistSnapshot) []*CandidateImage {
	out := make([]*CandidateImage, 0, len(images))
	for _, img := range images {
		if img == nil || s.BlocksURL(img.SourceURL) || s.BlocksURL(img.ImageURL) {
			continue
		}
		if img.PHash != 0 && s.BlocksPHash(img.PHash) {
			continue
		}
		out = append(out, img)
	}
	return out
}
