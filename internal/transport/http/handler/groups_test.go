package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGroupHarness(t *testing.T) (*harness, *mockGroupSvc) {
	h := newHarness(t)
	svc := new(mockGroupSvc)
	gh := NewGroupHandler(svc)
	h.router.Route("/groups", func(r chi.Router) {
		r.Use(middleware.RequireLogin)
		r.Get("/", gh.Manage)
		r.Post("/create", gh.Create)
		r.Get("/view", gh.View)
		r.Post("/add", gh.AddMembers)
		r.Post("/remove", gh.RemoveMembers)
		r.Post("/delete", gh.Delete)
		r.Post("/leave", gh.Leave)
	})
	return h, svc
}

func (h *harness) asUser(req *http.Request, username string) *http.Request {
	return h.withSession(req, &domain.Session{SessionID: "sess-" + username, Username: username})
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGroups_RequireLogin(t *testing.T) {
	h, svc := newGroupHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/groups/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGroups_Manage(t *testing.T) {
	h, svc := newGroupHarness(t)
	svc.On("List", mock.Anything, "alice").Return([]domain.Group{{GroupID: "g1", Name: "Lab", Owner: "alice"}}, nil)

	rr := h.do(h.asUser(httptest.NewRequest(http.MethodGet, "/groups/", nil), "alice"))
	require.Equal(t, http.StatusOK, rr.Code)
	var env GroupsEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "g1", env.Data[0].GroupID)
}

func TestGroups_ManageEmptyIsArray(t *testing.T) {
	h, svc := newGroupHarness(t)
	svc.On("List", mock.Anything, "alice").Return(nil, nil)

	rr := h.do(h.asUser(httptest.NewRequest(http.MethodGet, "/groups/", nil), "alice"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestGroups_Create(t *testing.T) {
	h, svc := newGroupHarness(t)
	svc.On("Create", mock.Anything, "alice", domain.GroupInput{Name: "Lab", Description: "d"}).
		Return(&domain.Group{GroupID: "g1", Name: "Lab", Owner: "alice", Members: []string{"alice"}}, nil)

	rr := h.do(h.asUser(jsonReq(http.MethodPost, "/groups/create", `{"name":"Lab","description":"d"}`), "alice"))
	assert.Equal(t, http.StatusCreated, rr.Code)
	var env GroupEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "alice", env.Group.Owner)
}

func TestGroups_CreateBadBody(t *testing.T) {
	h, _ := newGroupHarness(t)
	rr := h.do(h.asUser(jsonReq(http.MethodPost, "/groups/create", `{`), "alice"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGroups_ViewErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("group g1: %w", domain.ErrNotFound), http.StatusNotFound},
		{"not a member", fmt.Errorf("group g1: %w", domain.ErrForbidden), http.StatusForbidden},
		{"write raced", fmt.Errorf("group g1 changed concurrently: %w", domain.ErrConflict), http.StatusConflict},
		{"store down", fmt.Errorf("scan: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newGroupHarness(t)
			svc.On("Get", mock.Anything, "bob", "g1").Return(nil, tt.err)

			rr := h.do(h.asUser(httptest.NewRequest(http.MethodGet, "/groups/view?id=g1", nil), "bob"))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestGroups_ViewRequiresID(t *testing.T) {
	h, _ := newGroupHarness(t)
	rr := h.do(h.asUser(httptest.NewRequest(http.MethodGet, "/groups/view", nil), "alice"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGroups_AddAndRemoveMembers(t *testing.T) {
	h, svc := newGroupHarness(t)
	in := domain.GroupMembersInput{GroupID: "g1", Usernames: []string{"bob"}}
	svc.On("AddMembers", mock.Anything, "alice", in).
		Return(&domain.Group{GroupID: "g1", Owner: "alice", Members: []string{"alice", "bob"}}, nil)
	svc.On("RemoveMembers", mock.Anything, "alice", in).
		Return(nil, fmt.Errorf("only the owner can change members: %w", domain.ErrForbidden))

	rr := h.do(h.asUser(jsonReq(http.MethodPost, "/groups/add", `{"id":"g1","usernames":["bob"]}`), "alice"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(h.asUser(jsonReq(http.MethodPost, "/groups/remove", `{"id":"g1","usernames":["bob"]}`), "alice"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGroups_DeleteAndLeave(t *testing.T) {
	h, svc := newGroupHarness(t)
	svc.On("Delete", mock.Anything, "alice", "g1").Return(nil)
	svc.On("Leave", mock.Anything, "alice", "g1").Return(fmt.Errorf("owner cannot leave: %w", domain.ErrBadRequest))

	rr := h.do(h.asUser(jsonReq(http.MethodPost, "/groups/delete", `{"id":"g1"}`), "alice"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"group deleted"}`, rr.Body.String())

	rr = h.do(h.asUser(jsonReq(http.MethodPost, "/groups/leave", `{"id":"g1"}`), "alice"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(h.asUser(jsonReq(http.MethodPost, "/groups/leave", `{}`), "alice"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNumberOfCalls(t, "Leave", 1)
}
