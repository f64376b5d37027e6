package main

import (
	"context"
	"fmt"

	"github.com/darasa/portal/core/identity"
)

// loginTest verifies a set of credentials against the school API without
// establishing a portal session. The issued tokens are released right away.
func (cli *commandLine) loginTest(role, uname, pwd string) error {
	ctx := context.Background()

	switch role {
	case identity.RoleAdmin, identity.RoleTeacher:
		tokens, usr, err := cli.auth.StaffLogin(ctx, uname, pwd)
		if err != nil {
			return err
		}
		defer func() { _ = cli.auth.Logout(ctx, tokens) }()
		if usr.Role != role {
			return fmt.Errorf("%q belongs to the %s portal", uname, usr.Role)
		}
		fmt.Printf("OK: %s %q can sign in\n", usr.Role, usr.Username)
	case identity.RoleStudent:
		tokens, stu, err := cli.auth.StudentLogin(ctx, uname, pwd)
		if err != nil {
			return err
		}
		defer func() { _ = cli.auth.Logout(ctx, tokens) }()
		fmt.Printf("OK: student %q can sign in\n", stu.StudentID)
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}
