package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	"github.com/grupka/grupka/tests"
)

func Test_groupApi_access(t *testing.T) {
	a := setup(t)
	ann := a.createUser(t, "Ann", "ann@example.com")
	bob := a.createUser(t, "Bob", "bob@example.com")
	eve := a.createUser(t, "Eve", "eve@example.com")

	grp := testutil.CreateGroup(t, a.GroupSvc, ann, "Sunflowers")
	testutil.AddMember(t, a.GroupRepo, grp.ID, bob, group.RoleMember)
	annToken, bobToken, eveToken := a.token(t, ann), a.token(t, bob), a.token(t, eve)
	path := "/api/groups/" + grp.ID

	bobView := grp
	bobView.Role = group.RoleMember

	a.run(t, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marshallErr(t, errMissingToken)},
		{name: "admin view", path: path, token: annToken, wantCode: http.StatusOK, wantData: marshallData(t, grp)},
		{name: "member view", path: path, token: bobToken, wantCode: http.StatusOK, wantData: marshallData(t, bobView)},
		{
			name: "non member", path: path, token: eveToken,
			wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotMember),
		},
		{
			name: "non member members list", path: path + "/members", token: eveToken,
			wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotMember),
		},
		{
			name: "member cannot rename", method: http.MethodPatch, path: path, token: bobToken,
			body: []byte(`{"name": "Tulips"}`), wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotAdmin),
		},
		{
			name: "member cannot delete", method: http.MethodDelete, path: path, token: bobToken,
			wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotAdmin),
		},
		{
			name: "member cannot invite", method: http.MethodPost, path: path + "/invites", token: bobToken,
			wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotAdmin),
		},
		{
			name: "member cannot remove others", method: http.MethodDelete, path: path + "/members/" + ann.ID, token: bobToken,
			wantCode: http.StatusForbidden, wantData: marshallErr(t, group.ErrNotAdmin),
		},
		{
			name: "bad pagination", path: path + "/members?limit=abc&offset=-1", token: annToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallErr(t, errData(core.CodeValidation, "invalid pagination",
				"limit", "must be a number", "offset", "must not be negative")),
		},
		{
			name: "unknown route", path: "/api/nope", token: annToken,
			wantCode: http.StatusNotFound, wantData: marshallErr(t, errData(core.CodeNotFound, "Not Found")),
		},
	})
}

func Test_groupApi_create(t *testing.T) {
	a := setup(t)
	ann := a.createUser(t, "Ann", "ann@example.com")
	token := a.token(t, ann)

	rec := a.do(httpTest{method: http.MethodPost, path: "/api/groups", token: token, body: []byte(`{"name": " "}`)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErr(t, rec).Details, "name")

	rec = a.do(httpTest{method: http.MethodPost, path: "/api/groups", token: token, body: []byte(`{"name": " Sunflowers "}`)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grp group.UserGroup
	decodeData(t, rec, &grp)
	assert.Equal(t, "Sunflowers", grp.Name)
	assert.Equal(t, group.RoleAdmin, grp.Role)
	assert.Equal(t, ann.ID, grp.CreatedBy)

	rec = a.do(httpTest{path: "/api/groups/" + grp.ID + "/members", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var members []group.Member
	decodeData(t, rec, &members)
	require.Len(t, members, 1)
	assert.Equal(t, ann.ID, members[0].UserID)
	assert.Equal(t, group.RoleAdmin, members[0].Role)

	rec = a.do(httpTest{path: "/api/groups", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []group.UserGroup
	decodeData(t, rec, &groups)
	assert.Len(t, groups, 1)

	rec = a.do(httpTest{path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `grupka_domain_events_total{kind="group_created"} 1`)
}

func Test_groupApi_members(t *testing.T) {
	a := setup(t)
	ann := a.createUser(t, "Ann", "ann@example.com")
	bob := a.createUser(t, "Bob", "bob@example.com")
	grp := testutil.CreateGroup(t, a.GroupSvc, ann, "Sunflowers")
	testutil.AddMember(t, a.GroupRepo, grp.ID, bob, group.RoleMember)
	annToken, bobToken := a.token(t, ann), a.token(t, bob)
	path := "/api/groups/" + grp.ID + "/members/"

	a.run(t, []httpTest{
		{
			name: "last admin cannot leave", method: http.MethodDelete, path: path + ann.ID, token: annToken,
			wantCode: http.StatusConflict, wantData: marshallErr(t, group.ErrLastAdmin),
		},
		{
			name: "last admin cannot step down", method: http.MethodPatch, path: path + ann.ID, token: annToken,
			body: []byte(`{"role": "member"}`), wantCode: http.StatusConflict, wantData: marshallErr(t, group.ErrLastAdmin),
		},
		{
			name: "invalid role", method: http.MethodPatch, path: path + bob.ID, token: annToken,
			body: []byte(`{"role": "owner"}`), wantCode: http.StatusBadRequest,
			wantData: marshallErr(t, errData(core.CodeValidation, "invalid input", "role", "role must be one of admin or member")),
		},
	})

	// admin contacts are visible to members
	rec := a.do(httpTest{path: "/api/groups/" + grp.ID + "/admin-contact", token: bobToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []user.Contact
	decodeData(t, rec, &contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, ann.Email, contacts[0].Email)

	// promote bob, then ann may leave
	rec = a.do(httpTest{method: http.MethodPatch, path: path + bob.ID, token: annToken, body: []byte(`{"role": "admin"}`)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(httpTest{method: http.MethodDelete, path: path + ann.ID, token: annToken})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = a.do(httpTest{path: "/api/groups/" + grp.ID, token: annToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_groupApi_invites(t *testing.T) {
	a := setup(t)
	ann := a.createUser(t, "Ann", "ann@example.com")
	bob := a.createUser(t, "Bob", "bob@example.com")
	cat := a.createUser(t, "Cat", "cat@example.com")
	grp := testutil.CreateGroup(t, a.GroupSvc, ann, "Sunflowers")
	annToken, bobToken, catToken := a.token(t, ann), a.token(t, bob), a.token(t, cat)
	path := "/api/groups/" + grp.ID + "/invites"

	rec := a.do(httpTest{method: http.MethodPost, path: path, token: annToken})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv group.Invite
	decodeData(t, rec, &inv)
	assert.Len(t, inv.Code, a.Conf.Invite.CodeLength)
	assert.WithinDuration(t, inv.CreatedAt.Add(a.Conf.Invite.TTL), inv.ExpiresAt, time.Second)

	join := func(code string) []byte { return marshallObj(t, group.JoinGroup{Code: code}) }

	a.run(t, []httpTest{
		{name: "list", path: path, token: annToken, wantCode: http.StatusOK, wantData: marshallData(t, []group.Invite{inv})},
		{
			name: "preview", path: "/api/invites/" + strings.ToLower(inv.Code), token: bobToken, wantCode: http.StatusOK,
			wantData: marshallData(t, group.InvitePreview{
				Code: inv.Code, GroupID: grp.ID, GroupName: grp.Name, ExpiresAt: inv.ExpiresAt,
			}),
		},
		{
			name: "unknown code", method: http.MethodPost, path: "/api/invites/join", token: bobToken,
			body: join("NOPE2345"), wantCode: http.StatusNotFound, wantData: marshallErr(t, group.ErrInviteNotFound),
		},
	})

	// codes stay usable until they expire
	for _, token := range []string{bobToken, catToken} {
		rec = a.do(httpTest{method: http.MethodPost, path: "/api/invites/join", token: token, body: join(inv.Code)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ug group.UserGroup
		decodeData(t, rec, &ug)
		assert.Equal(t, group.RoleMember, ug.Role)
	}
	rec = a.do(httpTest{method: http.MethodPost, path: "/api/invites/join", token: bobToken, body: join(inv.Code)})
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marshallErr(t, group.ErrAlreadyMember)}, rec)

	t.Run("expired", func(t *testing.T) {
		dave := a.createUser(t, "Dave", "dave@example.com")
		group.NowFunc = func() time.Time { return inv.ExpiresAt }
		t.Cleanup(func() { group.NowFunc = time.Now })

		rec := a.do(httpTest{method: http.MethodPost, path: "/api/invites/join", token: a.token(t, dave), body: join(inv.Code)})
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallErr(t, group.ErrInviteNotFound)}, rec)
	})

	t.Run("revoke", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodDelete, path: path + "/" + inv.Code, token: annToken})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = a.do(httpTest{path: "/api/invites/" + inv.Code, token: catToken})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("email", func(t *testing.T) {
		rec := a.do(httpTest{
			method: http.MethodPost, path: path + "/email", token: annToken,
			body: []byte(`{"emails": ["gran@example.com", "uncle@example.com"]}`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sent group.Invite
		decodeData(t, rec, &sent)
		msgs := a.Mail.Messages()
		require.Len(t, msgs, 2)
		for _, msg := range msgs {
			assert.Contains(t, msg.TextContent, sent.Code)
		}

		rec = a.do(httpTest{method: http.MethodPost, path: path + "/email", token: annToken, body: []byte(`{"emails": ["nope"]}`)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
