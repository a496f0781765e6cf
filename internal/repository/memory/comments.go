package memory

import (
	"context"
	"sort"

	"go-blog-api/internal/model"
)

type commentRecord = model.Comment

type CommentRepository struct {
	s *Store
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	defer r.s.lock(ctx)()

	rows := make([]row[commentRecord], 0)
	for _, rec := range r.s.comments {
		if rec.value.PostID == postID {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.CreatedAt.Equal(rows[j].value.CreatedAt) {
			return rows[i].value.CreatedAt.Before(rows[j].value.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]model.Comment, 0, len(rows))
	for _, rec := range rows {
		out = append(out, cloneComment(rec.value))
	}
	return out, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (model.Comment, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.comments[id]
	if !ok {
		return model.Comment{}, model.ErrCommentNotFound
	}
	return cloneComment(rec.value), nil
}

func (r *CommentRepository) Create(ctx context.Context, c model.Comment) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.posts[c.PostID]; !ok {
		return errForeignKey("comments.post_id")
	}
	if c.UserID != nil {
		if _, ok := r.s.users[*c.UserID]; !ok {
			return errForeignKey("comments.user_id")
		}
	}
	r.s.comments[c.ID] = row[commentRecord]{value: cloneComment(c), seq: r.s.nextSeq()}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.comments[id]; !ok {
		return model.ErrCommentNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r *CommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	defer r.s.lock(ctx)()
	return r.deleteWhere(func(c model.Comment) bool { return c.PostID == postID }), nil
}

func (r *CommentRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()
	return r.deleteWhere(func(c model.Comment) bool { return c.UserID != nil && *c.UserID == userID }), nil
}

func (r *CommentRepository) DeleteByPostAuthor(ctx context.Context, authorID string) (int64, error) {
	defer r.s.lock(ctx)()
	return r.deleteWhere(func(c model.Comment) bool {
		post, ok := r.s.posts[c.PostID]
		return ok && post.value.AuthorID == authorID
	}), nil
}

func (r *CommentRepository) Count(ctx context.Context) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.comments), nil
}

func (r *CommentRepository) deleteWhere(match func(model.Comment) bool) int64 {
	var removed int64
	for id, rec := range r.s.comments {
		if match(rec.value) {
			delete(r.s.comments, id)
			removed++
		}
	}
	return removed
}

func cloneComment(c model.Comment) model.Comment {
	c.UserID = copyString(c.UserID)
	return c
}
