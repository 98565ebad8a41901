package interactions

import (
	"context"
	"fmt"
	"gorm.io/gorm"
	"gramm/monitoring"
	"gramm/storage"
	"gramm/storage/queries"
)

type LikeState struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// ToggleLike removes the user's like of the post if present and adds it
// otherwise. A concurrent duplicate insert resolves to liked.
func (s *Service) ToggleLike(ctx context.Context, userID, postID uint) (LikeState, error) {
	if _, err := s.manager.GetPost(ctx, postID); err != nil {
		return LikeState{}, err
	}
	var state LikeState
	err := s.manager.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		removed, err := queries.DeleteLike(tx, userID, postID)
		if err != nil {
			return err
		}
		if !removed {
			// Zero rows inserted means another request already holds the like.
			if _, err := queries.InsertLike(tx, userID, postID, s.manager.Now()); err != nil {
				return err
			}
		}
		state.Liked = !removed
		state.LikesCount, err = queries.CountLikes(tx, postID)
		return err
	})
	if storage.IsDuplicate(err) {
		state, err = s.likeState(ctx, userID, postID)
	}
	if err != nil {
		return LikeState{}, fmt.Errorf("toggling like of post %d: %w", postID, err)
	}
	if state.Liked {
		monitoring.LikeToggles.WithLabelValues("liked").Inc()
	} else {
		monitoring.LikeToggles.WithLabelValues("unliked").Inc()
	}
	return state, nil
}

func (s *Service) LikesCount(ctx context.Context, postID uint) (int64, error) {
	return queries.CountLikes(s.manager.DB(ctx), postID)
}

func (s *Service) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return queries.LikeExists(s.manager.DB(ctx), userID, postID)
}

func (s *Service) likeState(ctx context.Context, userID, postID uint) (LikeState, error) {
	liked, err := s.HasLiked(ctx, userID, postID)
	if err != nil {
		return LikeState{}, err
	}
	count, err := s.LikesCount(ctx, postID)
	if err != nil {
		return LikeState{}, err
	}
	return LikeState{Liked: liked, LikesCount: count}, nil
}
