// Demo program to showcase the arcalog event viewer with a realistic Prow
// build, without collecting anything.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"arcalog/src/contracts"
	"arcalog/src/events"
	"arcalog/src/tui"
)

func main() {
	info := &contracts.BuildInfo{
		BuildID:  "1794563201190064128",
		BuildURL: "https://prow.example.com/view/gs/origin-ci-test/logs/periodic-ci-e2e-aws/1794563201190064128",
		State:    contracts.StateFailure,
		JobType:  "periodic-ci-openshift-release-master-nightly-4.16-e2e-aws-ovn",
	}

	load := func(ctx context.Context) ([]contracts.Event, error) {
		// Long enough to see the loading spinner.
		select {
		case <-time.After(800 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return sampleEvents(info.BuildID), nil
	}

	if err := tui.Run(context.Background(), info, load); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func sampleEvents(buildID string) []contracts.Event {
	lines := []struct {
		file string
		line int
		text string
	}{
		{"build-log.txt", 112, "error: failed to pull image quay.io/openshift/ci:e2e-tests: manifest unknown"},
		{"build-log.txt", 948, "error: timed out waiting for the condition on clusteroperators/ingress"},
		{"build-log.txt", 1201, "error: timed out waiting for the condition on clusteroperators/authentication"},
		{"artifacts/e2e-aws-ovn/gather-extra/pods/openshift-ingress_router-default-7d9f8c6b5-x2k4q.log", 33, "E0521 10:42:17.003211 1 reflector.go:147] error: dial tcp 172.30.0.1:443: i/o timeout"},
		{"artifacts/e2e-aws-ovn/gather-extra/pods/openshift-ingress_router-default-7d9f8c6b5-x2k4q.log", 71, "E0521 10:43:02.917530 1 reflector.go:147] error: dial tcp 172.30.0.1:443: i/o timeout"},
		{"artifacts/e2e-aws-ovn/gather-extra/pods/openshift-authentication_oauth-openshift-5c7b8d9f4-8hjqw.log", 12, "E0521 10:44:55.120004 1 server.go:88] error: dial tcp 10.0.141.7:6443: connect: connection refused"},
		{"artifacts/e2e-aws-ovn/openshift-e2e-test/build-log.txt", 5530, "error: 3 fail, 2741 pass, 512 skip (1h42m10s)"},
		{"artifacts/e2e-aws-ovn/openshift-e2e-test/build-log.txt", 5533, "error: failed because of 3 test failures"},
		{"artifacts/e2e-aws-ovn/ipi-install-install/build-log.txt", 402, "level=error msg=Cluster operator ingress Degraded is True with IngressDegraded"},
		{"artifacts/e2e-aws-ovn/ipi-install-install/build-log.txt", 405, "level=error msg=Cluster operator authentication Available is False with OAuthServerRouteEndpointAccessibleController_EndpointUnavailable"},
	}

	out := make([]contracts.Event, 0, len(lines))
	for _, l := range lines {
		out = append(out, contracts.Event{
			BuildID:     buildID,
			File:        l.file,
			Line:        l.line,
			Text:        l.text,
			Fingerprint: events.Fingerprint(l.text),
		})
	}
	return out
}
