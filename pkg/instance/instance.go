package instance

import "github.com/angelmondragon/coinledger-backend/pkg/env"

// GetID names the running process for logs: an explicit override, then the
// platform dyno or container hostname.
func GetID() string {
	return env.First("local", "COINLEDGER_INSTANCE_ID", "DYNO", "HOSTNAME")
}
