package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/pkg/id"
	"github.com/go-gateway-auth/internal/pkg/validate"
)

type Store interface {
	Put(ctx context.Context, g *domain.Group) error
	Get(ctx context.Context, groupID string) (*domain.Group, error)
	ListForUser(ctx context.Context, username string) ([]domain.Group, error)
	Update(ctx context.Context, groupID string, prev time.Time, updates map[string]interface{}) error
	Delete(ctx context.Context, groupID string) error
}

type Service interface {
	List(ctx context.Context, username string) ([]domain.Group, error)
	Create(ctx context.Context, username string, in domain.GroupInput) (*domain.Group, error)
	Get(ctx context.Context, username, groupID string) (*domain.Group, error)
	AddMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error)
	RemoveMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error)
	Delete(ctx context.Context, username, groupID string) error
	Leave(ctx context.Context, username, groupID string) error
}

type service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) Service {
	return &service{store: store, now: time.Now}
}

// List returns the caller's groups, most recently created first.
func (s *service) List(ctx context.Context, username string) ([]domain.Group, error) {
	groups, err := s.store.ListForUser(ctx, username)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	return groups, nil
}

func (s *service) Create(ctx context.Context, username string, in domain.GroupInput) (*domain.Group, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	now := s.now().UTC()
	g := &domain.Group{
		GroupID:     id.New(),
		Name:        in.Name,
		Description: in.Description,
		Owner:       username,
		Members:     []string{username},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Put(ctx, g); err != nil {
		return nil, err
	}
	slog.Info("group created", "group_id", g.GroupID, "owner", username)
	return g, nil
}

func (s *service) Get(ctx context.Context, username, groupID string) (*domain.Group, error) {
	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Owner != username && !g.IsMember(username) {
		return nil, fmt.Errorf("not a member of group %s: %w", groupID, domain.ErrForbidden)
	}
	return g, nil
}

func (s *service) owned(ctx context.Context, username, groupID string) (*domain.Group, error) {
	g, err := s.store.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Owner != username {
		return nil, fmt.Errorf("only the owner can change group %s: %w", groupID, domain.ErrForbidden)
	}
	return g, nil
}

func (s *service) AddMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	return s.changeMembers(ctx, in.GroupID, func(g *domain.Group) ([]string, error) {
		if g.Owner != username {
			return nil, fmt.Errorf("only the owner can change group %s: %w", g.GroupID, domain.ErrForbidden)
		}
		members := slices.Clone(g.Members)
		for _, u := range in.Usernames {
			if !slices.Contains(members, u) {
				members = append(members, u)
			}
		}
		return members, nil
	})
}

func (s *service) RemoveMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	return s.changeMembers(ctx, in.GroupID, func(g *domain.Group) ([]string, error) {
		if g.Owner != username {
			return nil, fmt.Errorf("only the owner can change group %s: %w", g.GroupID, domain.ErrForbidden)
		}
		if slices.Contains(in.Usernames, g.Owner) {
			return nil, fmt.Errorf("the owner cannot be removed from group %s: %w", g.GroupID, domain.ErrBadRequest)
		}
		return slices.DeleteFunc(slices.Clone(g.Members), func(m string) bool {
			return slices.Contains(in.Usernames, m)
		}), nil
	})
}

func (s *service) Delete(ctx context.Context, username, groupID string) error {
	if _, err := s.owned(ctx, username, groupID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, groupID); err != nil {
		return err
	}
	slog.Info("group deleted", "group_id", groupID, "owner", username)
	return nil
}

func (s *service) Leave(ctx context.Context, username, groupID string) error {
	_, err := s.changeMembers(ctx, groupID, func(g *domain.Group) ([]string, error) {
		if g.Owner == username {
			return nil, fmt.Errorf("the owner cannot leave group %s: %w", groupID, domain.ErrBadRequest)
		}
		if !g.IsMember(username) {
			return nil, fmt.Errorf("not a member of group %s: %w", groupID, domain.ErrForbidden)
		}
		return slices.DeleteFunc(slices.Clone(g.Members), func(m string) bool { return m == username }), nil
	})
	return err
}

// maxMemberWrites bounds the reread-and-retry loop when membership writes race.
const maxMemberWrites = 3

// changeMembers reads the group, derives the new member list and writes it
// conditioned on the updated_at it read. A write lost to a concurrent change
// is retried against a fresh read.
func (s *service) changeMembers(ctx context.Context, groupID string, change func(g *domain.Group) ([]string, error)) (*domain.Group, error) {
	for attempt := 1; ; attempt++ {
		g, err := s.store.Get(ctx, groupID)
		if err != nil {
			return nil, err
		}
		members, err := change(g)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		err = s.store.Update(ctx, g.GroupID, g.UpdatedAt, map[string]interface{}{
			"members":    members,
			"updated_at": now,
		})
		if errors.Is(err, domain.ErrConflict) && attempt < maxMemberWrites {
			slog.Warn("group membership write raced, retrying", "group_id", groupID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		out := *g
		out.Members = members
		out.UpdatedAt = now
		return &out, nil
	}
}
