package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUserByEmail(ctx, email)
	}
	switch err {
	case nil: // update existing
		if name != "" {
			usr.Name = name
		}
		if isAdmin {
			usr.Roles = user.AdminRoles
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		isActive := true
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
		return err
	case user.ErrNotFound:
		now := time.Now().UTC()
		usr = user.User{
			ID:        uuid.New().String(),
			Name:      name,
			Username:  uname,
			Email:     email,
			IsActive:  true,
			Roles:     user.StudentRoles,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if isAdmin {
			usr.Roles = user.AdminRoles
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	default:
		return err
	}
}
