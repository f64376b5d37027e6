package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) listSessions() error {
	sessions, err := cli.idSvc.QueryAll(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no live sessions")
		return nil
	}

	fmt.Printf("%-38s %-8s %-12s %-25s %s\n", "ID", "ROLE", "SUBJECT", "EXPIRES", "IP")
	for _, sess := range sessions {
		fmt.Printf("%-38s %-8s %-12s %-25s %s\n",
			sess.ID, sess.Role(), sess.Identity.Subject(), sess.ExpiresAt.Format(time.RFC3339), sess.IPAddress)
	}
	return nil
}

func (cli *commandLine) revokeSession(id string) error {
	ctx := context.Background()
	if _, err := cli.idSvc.Get(ctx, id); err != nil {
		return err
	}
	if err := cli.idSvc.Destroy(ctx, id, "revoked by operator"); err != nil {
		return err
	}
	fmt.Println("session revoked:", id)
	return nil
}
