// Command voiceprintd runs the speaker identification service.
//
// Usage:
//
//	voiceprintd [flags] <command>
//
// Commands:
//
//	serve    - Run the REST API service
//	stats    - Show feature store statistics
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/voiceprint/cmd/voiceprintd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
