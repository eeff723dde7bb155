// Command voicedesk records voice messages and meetings from the local
// microphone and sends them to the assistant backend.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
