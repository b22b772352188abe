package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrNoMembers     = errors.New("a group needs at least one member")
)

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, name string, creatorID int, memberIDs []int, avatar string) (models.Group, []int, error)
	LeaveGroup(ctx context.Context, groupID, userID int) error
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	GroupIDsForUser(ctx context.Context, userID int) ([]int, error)
	MembersOf(ctx context.Context, groupID int) ([]int, error)
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup inserts the group row and all membership rows in one
// transaction. The creator is always a member; memberIDs are deduped.
// Returns the final member set alongside the group.
func (r *GroupRepo) CreateGroup(ctx context.Context, name string, creatorID int, memberIDs []int, avatar string) (models.Group, []int, error) {
	if creatorID == 0 && len(memberIDs) == 0 {
		return models.Group{}, nil, ErrNoMembers
	}

	memberSet := map[int]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	members := make([]int, 0, len(memberSet))
	for id := range memberSet {
		members = append(members, id)
	}
	sort.Ints(members)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO groups (name, created_by, avatar) VALUES ($1, $2, $3)
         RETURNING id, name, created_by, avatar, created_at`,
		name, creatorID, avatar).
		Scan(&group.ID, &group.Name, &group.CreatedBy, &group.Avatar, &group.CreatedAt); err != nil {
		return models.Group{}, nil, err
	}

	for _, id := range members {
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, id); err != nil {
			return models.Group{}, nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, nil, err
	}
	return group, members, nil
}

// LeaveGroup deletes the membership and, when the group is left empty,
// the group row itself. The recount happens inside the same transaction
// so concurrent leaves of the last two members cannot orphan the group.
// Leaving a group the user is not in is a no-op.
func (r *GroupRepo) LeaveGroup(ctx context.Context, groupID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID); err != nil {
		return err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM group_members WHERE group_id=$1`, groupID); err != nil {
		return err
	}
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM groups WHERE id=$1`, groupID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.created_by, g.avatar, g.created_at FROM groups g
         INNER JOIN group_members gm ON gm.group_id = g.id
         WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// GroupIDsForUser returns only the group ids, used to subscribe a fresh
// session to its rooms.
func (r *GroupRepo) GroupIDsForUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT group_id FROM group_members WHERE user_id=$1`, userID)
	return ids, err
}

// MembersOf returns the user ids belonging to the group.
func (r *GroupRepo) MembersOf(ctx context.Context, groupID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY user_id ASC`, groupID)
	return ids, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, created_by, avatar, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}
