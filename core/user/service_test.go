package user_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
	inmemdb "github.com/trezcool/summercamps/storage/database/inmem"
)

type outbox struct {
	sync.Mutex
	sent []*core.EmailMessage
}

func (o *outbox) SendMessages(messages ...*core.EmailMessage) {
	o.Lock()
	defer o.Unlock()
	o.sent = append(o.sent, messages...)
}

func newService(t *testing.T) (user.ServiceInterface, *outbox) {
	t.Helper()
	mails := new(outbox)
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewServiceMock(repo, mails, core.NewTestConfig()), mails
}

func TestService_Create(t *testing.T) {
	svc, _ := newService(t)

	usr, err := svc.Create(user.NewUser{Name: "Jane", Username: "jane", Email: "jane@test.cd", Password: "pwd"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, []string{user.RoleParent}, usr.Roles)
	assert.NoError(t, usr.CheckPassword("pwd"))

	err = svc.CheckUniqueness("jane", "")
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []core.FieldError{{Field: "username", Error: user.ErrUsernameExists.Error()}}, verr.Fields)

	err = svc.CheckUniqueness("other", "jane@test.cd")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields[0].Field)

	assert.NoError(t, svc.CheckUniqueness("jane", "jane@test.cd", usr))

	for _, lookup := range []string{"JANE", " jane@test.cd "} {
		found, err := svc.GetByUsernameOrEmail(lookup)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, found.ID)
	}
	_, err = svc.GetByEmail("lol@test.cd")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Update(t *testing.T) {
	svc, _ := newService(t)
	usr, err := svc.Create(user.NewUser{Name: "Jane", Username: "jane", Email: "jane@test.cd", Password: "pwd"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(usr.ID, user.UpdateUser{
		Name: "Jane D.", Username: "jane", Email: "jane@test.cd", IsActive: &inactive, Roles: user.AdminRoles, Password: "new",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, user.AdminRoles, updated.Roles)
	assert.NoError(t, updated.CheckPassword("new"))

	admins, err := svc.Query(&user.QueryFilter{Roles: []string{user.RoleAdmin}}, nil)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	require.NoError(t, svc.Delete(usr.ID))
	_, err = svc.GetByID(usr.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_passwordReset(t *testing.T) {
	svc, mails := newService(t)
	usr, err := svc.Create(user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: "pwd"})
	require.NoError(t, err)

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset("lol@test.cd"))
	require.NoError(t, svc.RequestPasswordReset("jane@test.cd"))
	require.Len(t, mails.sent, 1)
	msg := mails.sent[0]
	assert.Equal(t, "jane@test.cd", msg.To[0].Address)
	assert.Equal(t, "password_reset", msg.TemplateName)

	// .../password-reset/<uid>/<token>
	resetURL := msg.TemplateData.(map[string]interface{})["ResetURL"].(string)
	parts := strings.Split(resetURL, "/")
	require.GreaterOrEqual(t, len(parts), 3)
	uid, token := parts[len(parts)-2], parts[len(parts)-1]
	assert.Equal(t, user.EncodeUID(usr), uid)

	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "lol", Token: token, Password: "new"}, wantErr: true},
		{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "lol-lol", Password: "new"}, wantErr: true},
		{name: "valid", data: user.ResetUserPassword{UID: uid, Token: token, Password: "new"}},
		{name: "token used", data: user.ResetUserPassword{UID: uid, Token: token, Password: "newer"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(tt.data)
			if tt.wantErr {
				var verr *core.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
		})
	}

	refreshed, err := svc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("new"))

	inactive := false
	_, err = svc.Update(usr.ID, user.UpdateUser{Name: "Jane", Email: "jane@test.cd", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, user.ErrInactive, svc.RequestPasswordReset("jane@test.cd"))
}
