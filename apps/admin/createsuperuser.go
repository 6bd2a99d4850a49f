package main

import (
	"time"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/user"
)

// createSuperuser updates or creates an admin account. The account is
// created confirmed so it can log in right away.
func (cli *commandLine) createSuperuser(name, email, pwd string) error {
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: now,
		}
		usr.Roles = auth.AllRoles
		usr.EmailConfirmed = true
		usr.UpdatedAt = now
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(usr)
		return err
	}

	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateUser(user.User{
		ID:           usr.ID,
		Name:         name,
		Roles:        auth.AllRoles,
		PasswordHash: usr.PasswordHash,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}
	if !usr.EmailConfirmed {
		if _, err = cli.usrRepo.SetEmailConfirmed(usr.ID); err != nil {
			return err
		}
	}
	return nil
}
