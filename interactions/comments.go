package interactions

import (
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/validation"
	"strings"
	"unicode/utf8"
)

type Service struct {
	manager *storage.Manager
}

func NewService(manager *storage.Manager) *Service {
	return &Service{manager: manager}
}

type CommentResult struct {
	Comment       models.Comment `json:"comment"`
	CommentsCount int64          `json:"comments_count"`
}

func cleanCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validation.Errorf("comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return "", validation.Errorf("comment must be at most %d characters", models.MaxCommentLength)
	}
	return text, nil
}

func (s *Service) AddComment(ctx context.Context, authorID, postID uint, text string) (CommentResult, error) {
	text, err := cleanCommentText(text)
	if err != nil {
		return CommentResult{}, err
	}
	if _, err := s.manager.GetPost(ctx, postID); err != nil {
		return CommentResult{}, err
	}
	now := s.manager.Now()
	comment := models.Comment{AuthorID: authorID, PostID: postID, Text: text, CreatedAt: now, UpdatedAt: now}
	var result CommentResult
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		if err := queries.CreateComment(tx, &comment); err != nil {
			return err
		}
		count, err := queries.CountComments(tx, postID)
		result = CommentResult{Comment: comment, CommentsCount: count}
		return err
	})
	if err != nil {
		return CommentResult{}, fmt.Errorf("adding comment to post %d: %w", postID, err)
	}
	return result, nil
}

// EditComment replaces the text of a comment owned by actorID.
func (s *Service) EditComment(ctx context.Context, actorID, commentID uint, text string) (models.Comment, error) {
	text, err := cleanCommentText(text)
	if err != nil {
		return models.Comment{}, err
	}
	comment, err := s.ownedComment(ctx, actorID, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	now := s.manager.Now()
	if err := queries.UpdateCommentText(s.manager.DB(ctx), comment.ID, text, now); err != nil {
		return models.Comment{}, fmt.Errorf("editing comment %d: %w", commentID, err)
	}
	comment.Text = text
	comment.UpdatedAt = now
	return *comment, nil
}

// DeleteComment removes a comment owned by actorID and returns the post's remaining count.
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID uint) (int64, error) {
	comment, err := s.ownedComment(ctx, actorID, commentID)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		if err := queries.DeleteComment(tx, comment.ID); err != nil {
			return err
		}
		count, err = queries.CountComments(tx, comment.PostID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting comment %d: %w", commentID, err)
	}
	return count, nil
}

// Comments lists a post's comments oldest first.
func (s *Service) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.manager.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return queries.ListComments(s.manager.DB(ctx), postID)
}

func (s *Service) ownedComment(ctx context.Context, actorID, commentID uint) (*models.Comment, error) {
	comment, err := queries.GetComment(s.manager.DB(ctx), commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, storage.ErrForbidden
	}
	return comment, nil
}
