package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/summercamps/apps/api/echo"
	"github.com/trezcool/summercamps/core/user"
	testutil "github.com/trezcool/summercamps/tests"
)

func Test_userApi_login(t *testing.T) {
	a := newApp(t)
	testutil.CreateUser(t, a.usrRepo, "Jane", "jane", "jane@test.cd", "Summ3r!Camp", []string{user.RoleParent}, true)
	testutil.CreateUser(t, a.usrRepo, "N Dog", "ndog", "ndog@test.cd", "Summ3r!Camp", []string{user.RoleParent}, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, LoginRequest{Username: "jane", Password: "lol"}),
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, LoginRequest{Username: "lol", Password: "Summ3r!Camp"}),
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden,
			body:     marshalObj(t, LoginRequest{Username: "ndog", Password: "Summ3r!Camp"}),
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: marshalObj(t, LoginRequest{Username: " JANE ", Password: "Summ3r!Camp"})},
		{name: "by email", body: marshalObj(t, LoginRequest{Username: "jane@test.cd", Password: "Summ3r!Camp"})},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(newRequest(http.MethodPost, "/v1/users/login", tt.body))
			if tt.wantCode == http.StatusOK {
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				var resp LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	a := newApp(t)

	path := func(search, ordering string, createdFrom time.Time, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now().UTC().Truncate(time.Second)
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)

	usr1 := testutil.CreateUser(t, a.usrRepo, "User", "awe", "awe@test.cd", "", nil, true, t1)
	parent := testutil.CreateUser(t, a.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleParent}, true, now)
	admin := testutil.CreateUser(t, a.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true, t2)
	organiser := testutil.CreateUser(t, a.usrRepo, "Organiser", "orga", "orga@test.cd", "", []string{user.RoleOrganiser}, true, t3)
	naughty := testutil.CreateUser(t, a.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleParent}, false, now.Add(-time.Hour))

	adminToken := a.token(t, admin)

	runHTTPTests(t, a, []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: a.token(t, parent), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	})

	tests := []struct {
		name string
		path string
		want []user.User
	}{
		{name: "Get all", path: "/v1/users", want: []user.User{organiser, admin, usr1, parent, naughty}},
		{name: "search (unknown)", path: path("lol", "", time.Time{}, nil)},
		{name: "search=USE", path: path("USE", "", time.Time{}, nil), want: []user.User{usr1, parent}},
		{name: "role=parent:", path: path("", "", time.Time{}, nil, user.RoleParent), want: []user.User{parent, naughty}},
		{name: "is_active=false", path: path("", "", time.Time{}, bPtr(false)), want: []user.User{naughty}},
		{name: "created_from", path: path("", "", t1, nil), want: []user.User{organiser, admin, usr1}},
		{name: "order by name", path: path("", "name", time.Time{}, nil), want: []user.User{admin, parent, naughty, organiser, usr1}},
		{
			name: "filtering & ordering", path: path("", "-name", time.Time{}, bPtr(true), user.RoleParent, user.RoleOrganiser),
			want: []user.User{organiser, parent},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(newAuthRequest(http.MethodGet, tt.path, adminToken))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got []user.User
			decode(t, rec, &got)
			assert.Equal(t, userIDs(tt.want), userIDs(got))
		})
	}
}

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func Test_userApi_userRefreshToken(t *testing.T) {
	a := newApp(t)

	naughty := testutil.CreateUser(t, a.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleParent}, false)
	parent := testutil.CreateUser(t, a.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleParent}, true)

	// first issued before the refresh threshold
	oldIat := time.Now().Add(-2 * a.conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := a.Auth().GenerateToken(a.Auth().UserClaims(parent, oldIat))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: a.token(t, naughty), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: a.token(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token))
			if tt.wantCode == http.StatusOK {
				// cannot guess the new token, just check that it's not empty
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	a := newApp(t)
	parent := testutil.CreateUser(t, a.usrRepo, "Hero", "hero", "user3@test.cd", "lol", []string{user.RoleParent}, true)
	successData := marshalObj(t, SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	runHTTPTests(t, a, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/users/password-reset", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, PasswordResetRequest{Email: "this field is required"}),
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/users/password-reset", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, PasswordResetRequest{Email: "lol"}),
			wantData: marshalObj(t, PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/password-reset",
			body: marshalObj(t, PasswordResetRequest{Email: "lol@test.com"}), wantData: successData,
		},
	})
	assert.Empty(t, a.mailSvc.Sent())

	rec := a.do(newRequest(http.MethodPost, "/v1/users/password-reset", marshalObj(t, PasswordResetRequest{Email: parent.Email})))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: successData}, rec)

	sent := a.mailSvc.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, parent.Email, msg.To[0].Address)
	assert.Contains(t, msg.TextContent, parent.Name)
	assert.Contains(t, msg.HTMLContent, parent.Name)

	match := regexp.MustCompile(`/password-reset/([^/\s]+)/([^/\s"]+)`).FindStringSubmatch(msg.TextContent)
	require.Len(t, match, 3, msg.TextContent)
	uid, token := match[1], match[2]

	reqMsg := "this field is required"
	confirm := "/v1/users/password-reset-confirm"
	runHTTPTests(t, a, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: confirm, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "PasswordConfirm must = Password", method: http.MethodPost, path: confirm, wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marshalObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "user not found", method: http.MethodPost, path: confirm, wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: token, UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marshalObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", method: http.MethodPost, path: confirm, wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: uid, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marshalObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "valid token", method: http.MethodPost, path: confirm,
			body:     marshalObj(t, user.ResetUserPassword{Token: token, UID: uid, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marshalObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	})

	refreshed, err := a.usrRepo.GetUser(context.Background(), user.GetFilter{ID: parent.ID})
	require.NoError(t, err)
	assert.NotEqual(t, parent.PasswordHash, refreshed.PasswordHash)
	assert.NoError(t, refreshed.CheckPassword("LolC@t123"))
}

func Test_userApi_destroy(t *testing.T) {
	a := newApp(t)
	admin := testutil.CreateUser(t, a.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, a.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleParent}, true)
	adminToken := a.token(t, admin)

	runHTTPTests(t, a, []httpTest{
		{name: "parent cannot delete", method: http.MethodDelete, path: "/v1/users/" + parent.ID, token: a.token(t, parent), wantCode: http.StatusForbidden},
		{name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "unknown user", method: http.MethodDelete, path: "/v1/users/lol", token: adminToken, wantCode: http.StatusNotFound},
		{name: "deleted", method: http.MethodDelete, path: "/v1/users/" + parent.ID, token: adminToken, wantCode: http.StatusNoContent},
	})

	_, err := a.usrRepo.GetUser(context.Background(), user.GetFilter{ID: parent.ID})
	assert.Error(t, err)
}
