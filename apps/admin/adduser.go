package main

import (
	"time"

	"github.com/peerhive/backend/core"
	"github.com/peerhive/backend/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, name, pwd string, isAdmin bool) error {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.repo.GetUserByEmail(email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        core.NewID("u"),
			Name:      name,
			Email:     email,
			Role:      user.RoleStudent,
			Subjects:  []string{},
			CreatedAt: time.Now().UTC(),
		}
		if isAdmin {
			usr.Role = user.RoleAdmin
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.repo.CreateUser(usr)
		return err
	}

	usr.Name = name
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.repo.UpdateUser(usr)
	return err
}
