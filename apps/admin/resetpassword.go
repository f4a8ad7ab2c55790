package main

import (
	"github.com/peerhive/backend/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	usr, err := cli.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.repo.UpdateUser(usr)
	return err
}
