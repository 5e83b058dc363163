package instance

import "os"

// ID identifies the running process in logs. DYNO wins over HOSTNAME; local
// runs fall back to "local".
func ID() string {
	for _, key := range []string{"DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
