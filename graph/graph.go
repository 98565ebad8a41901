// Package graph maintains the directed follow relation between users.
// Counts are always derived from the edge set.
package graph

import (
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
	"gramm/monitoring"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/validation"
)

type Engine struct {
	manager *storage.Manager
}

func NewEngine(manager *storage.Manager) *Engine {
	return &Engine{manager: manager}
}

// EdgePage holds one page of edges; Users[i] is the counterpart of Edges[i].
type EdgePage struct {
	Edges   []models.Follow `json:"edges"`
	Users   []models.User   `json:"users"`
	Total   int64           `json:"total"`
	HasNext bool            `json:"has_next"`
}

type FollowState struct {
	IsFollowing    bool  `json:"is_following"`
	FollowersCount int64 `json:"followers_count"`
}

// Follow creates the edge actor -> target. It reports false without error when
// the target does not exist, is the actor, or is already followed.
func (e *Engine) Follow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || targetID == 0 || actorID == targetID {
		monitoring.GraphEvents.WithLabelValues("follow", "rejected").Inc()
		return false, nil
	}
	if _, err := e.manager.GetUser(ctx, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			monitoring.GraphEvents.WithLabelValues("follow", "rejected").Inc()
			return false, nil
		}
		return false, err
	}
	created, err := queries.InsertFollow(e.manager.DB(ctx), actorID, targetID, e.manager.Now())
	if err != nil {
		if storage.IsDuplicate(err) {
			monitoring.GraphEvents.WithLabelValues("follow", "noop").Inc()
			return false, nil
		}
		return false, fmt.Errorf("creating follow %d -> %d: %w", actorID, targetID, err)
	}
	if created {
		monitoring.GraphEvents.WithLabelValues("follow", "created").Inc()
	} else {
		monitoring.GraphEvents.WithLabelValues("follow", "noop").Inc()
	}
	return created, nil
}

func (e *Engine) Unfollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || targetID == 0 {
		return false, nil
	}
	removed, err := queries.DeleteFollow(e.manager.DB(ctx), actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("deleting follow %d -> %d: %w", actorID, targetID, err)
	}
	if removed {
		monitoring.GraphEvents.WithLabelValues("unfollow", "removed").Inc()
	} else {
		monitoring.GraphEvents.WithLabelValues("unfollow", "noop").Inc()
	}
	return removed, nil
}

func (e *Engine) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || targetID == 0 {
		return false, nil
	}
	return queries.FollowExists(e.manager.DB(ctx), actorID, targetID)
}

func (e *Engine) FollowersCount(ctx context.Context, userID uint) (int64, error) {
	return queries.CountFollowers(e.manager.DB(ctx), userID)
}

func (e *Engine) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return queries.CountFollowing(e.manager.DB(ctx), userID)
}

// Followers lists the users following userID, newest edge first.
func (e *Engine) Followers(ctx context.Context, userID uint, page storage.Page) (EdgePage, error) {
	return e.list(ctx, userID, page, queries.CountFollowers, queries.ListFollowers, func(f models.Follow) models.User {
		return f.Follower
	})
}

// Following lists the users userID follows, newest edge first.
func (e *Engine) Following(ctx context.Context, userID uint, page storage.Page) (EdgePage, error) {
	return e.list(ctx, userID, page, queries.CountFollowing, queries.ListFollowing, func(f models.Follow) models.User {
		return f.Following
	})
}

// ToggleFollow flips the actor's follow of the named user.
func (e *Engine) ToggleFollow(ctx context.Context, actorID uint, targetUsername string) (FollowState, error) {
	target, err := e.manager.GetUserByUsername(ctx, targetUsername)
	if err != nil {
		return FollowState{}, err
	}
	if target.ID == actorID {
		return FollowState{}, validation.Errorf("you cannot follow yourself")
	}
	following, err := e.IsFollowing(ctx, actorID, target.ID)
	if err != nil {
		return FollowState{}, err
	}
	if following {
		_, err = e.Unfollow(ctx, actorID, target.ID)
	} else {
		_, err = e.Follow(ctx, actorID, target.ID)
	}
	if err != nil {
		return FollowState{}, err
	}
	return e.State(ctx, actorID, target.ID)
}

// State reads the actor's relation to target together with the target's follower count.
func (e *Engine) State(ctx context.Context, actorID, targetID uint) (FollowState, error) {
	following, err := e.IsFollowing(ctx, actorID, targetID)
	if err != nil {
		return FollowState{}, err
	}
	count, err := e.FollowersCount(ctx, targetID)
	if err != nil {
		return FollowState{}, err
	}
	return FollowState{IsFollowing: following, FollowersCount: count}, nil
}

func (e *Engine) list(
	ctx context.Context,
	userID uint,
	page storage.Page,
	count func(*gorm.DB, uint) (int64, error),
	fetch func(*gorm.DB, uint, int, int) ([]models.Follow, error),
	counterpart func(models.Follow) models.User,
) (EdgePage, error) {
	if _, err := e.manager.GetUser(ctx, userID); err != nil {
		return EdgePage{}, err
	}
	db := e.manager.DB(ctx)
	total, err := count(db, userID)
	if err != nil {
		return EdgePage{}, err
	}
	edges, err := fetch(db, userID, page.Offset(), page.Limit())
	if err != nil {
		return EdgePage{}, err
	}
	users := make([]models.User, 0, len(edges))
	for _, edge := range edges {
		users = append(users, counterpart(edge))
	}
	return EdgePage{
		Edges:   edges,
		Users:   users,
		Total:   total,
		HasNext: page.HasNext(total),
	}, nil
}
