package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func newGroupEngine(env *handlerEnv) *gin.Engine {
	h := NewGroupHandler(env.groups, env.router, nil)
	engine := gin.New()
	engine.POST("/api/groups", asUser(1), h.CreateGroup)
	engine.GET("/api/groups", asUser(1), h.ListGroups)
	engine.POST("/api/groups/leave", asUser(1), h.LeaveGroup)
	engine.GET("/api/groups/:group_id/members", asUser(1), h.GroupMembers)
	return engine
}

func TestCreateGroupPersistsAtomically(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("CreateGroup", mock.Anything, "roadtrip", 1, []int{2, 3}, mock.MatchedBy(func(avatar string) bool {
		return avatar != ""
	})).Return(models.Group{ID: 12, Name: "roadtrip", CreatedBy: 1}, []int{1, 2, 3}, nil).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/groups", gin.H{
		"name":       "roadtrip",
		"member_ids": []int{2, 3},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 12, decodeBody(t, rec)["group_id"])
	env.groups.AssertExpectations(t)
}

func TestCreateGroupRequiresName(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	rec := performJSON(t, engine, http.MethodPost, "/api/groups", gin.H{"member_ids": []int{2}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env.groups.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupRequiresMembers(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("CreateGroup", mock.Anything, "solo", 1, mock.Anything, mock.Anything).
		Return(models.Group{}, nil, repositories.ErrNoMembers).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/groups", gin.H{"name": "solo"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGroupsReturnsMemberships(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("ListGroupsForUser", mock.Anything, 1).Return([]models.Group{
		{ID: 12, Name: "roadtrip"},
		{ID: 13, Name: "book club"},
	}, nil).Once()

	rec := performJSON(t, engine, http.MethodGet, "/api/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody(t, rec)["groups"].([]interface{}), 2)
}

func TestLeaveGroupSucceedsWithoutMembership(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("LeaveGroup", mock.Anything, 12, 1).Return(nil).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/groups/leave", gin.H{"group_id": 12})
	require.Equal(t, http.StatusNoContent, rec.Code)
	env.groups.AssertExpectations(t)
}

func TestGroupMembersRequiresMembership(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("IsMember", mock.Anything, 12, 1).Return(false, nil).Once()

	rec := performJSON(t, engine, http.MethodGet, "/api/groups/12/members", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	env.groups.AssertNotCalled(t, "MembersOf", mock.Anything, mock.Anything)
}

func TestGroupMembersListsRoster(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newGroupEngine(env)

	env.groups.On("IsMember", mock.Anything, 12, 1).Return(true, nil).Once()
	env.groups.On("MembersOf", mock.Anything, 12).Return([]int{1, 2, 3}, nil).Once()

	rec := performJSON(t, engine, http.MethodGet, "/api/groups/12/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody(t, rec)["members"].([]interface{}), 3)
}
