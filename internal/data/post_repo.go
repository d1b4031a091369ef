package data

import (
	"context"

	"imagesearch/internal/biz"
	"imagesearch/internal/data/postgres/sqlc"

	"github.com/go-kratos/kratos/v2/log"
)

type postRepo struct {
	data *Data
	log  *log.Helper
}

// NewPostRepo .
func NewPostRepo(data *Data, logger log.Logger) biz.PostRepo {
	return &postRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// FindByKeyword implements biz.PostRepo. Keywords of every returned post are
// loaded in one extra query.
func (r *postRepo) FindByKeyword(ctx context.Context, keyword string) ([]*biz.Post, error) {
	rows, err := r.data.Queries.ListPostsByKeyword(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	kwRows, err := r.data.Queries.ListKeywordsForPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	return toBizPosts(rows, kwRows), nil
}

func toBizPosts(rows []sqlc.Post, kwRows []sqlc.ListKeywordsForPostsRow) []*biz.Post {
	byPost := make(map[int64][]string, len(rows))
	for _, kr := range kwRows {
		byPost[kr.PostID] = append(byPost[kr.PostID], kr.Word)
	}
	posts := make([]*biz.Post, len(rows))
	for i, row := range rows {
		posts[i] = &biz.Post{
			ID:          row.ID,
			Author:      row.Author,
			Description: row.Description,
			ImagePath:   row.ImagePath,
			SourceURL:   row.SourceUrl.String,
			Keywords:    byPost[row.ID],
		}
	}
	return posts
}
