package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	exists := err == nil
	if !exists && uname != "" && email != "" {
		// the email may belong to a user with another username
		if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email}); err == nil {
			exists = true
		} else if errors.Cause(err) != user.ErrNotFound {
			return err
		}
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{ID: uuid.New().String(), CreatedAt: now}
	}
	if uname != "" {
		usr.Username = uname
	}
	if email != "" {
		usr.Email = email
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.SetActive(true)
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		active := true
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	cli.logger.Info("saved user " + usr.Username + " <" + usr.Email + ">")
	return nil
}
