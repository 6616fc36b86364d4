package user

import (
	"github.com/trezcool/summercamps/core"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	return &serviceMock{service: newService(repo, mailSvc, conf, core.NopLogger())}
}

func (svc *serviceMock) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrInactive
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
