package main

import (
	"context"
	"fmt"

	"github.com/darasa/portal/core/health"
)

func (cli *commandLine) health() error {
	st := health.Check(context.Background(), cli.probe, cli.conf.Upstream.ProbeTimeout)

	if st.APIReachable {
		fmt.Printf("school API: reachable (%s)\n", st.Latency)
	} else {
		fmt.Println("school API: unreachable")
	}
	if st.AuthHealthy {
		fmt.Println("auth: healthy")
	} else {
		fmt.Println("auth: failing")
	}

	if !st.Healthy() {
		return errUnhealthy
	}
	return nil
}
