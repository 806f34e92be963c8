// Command agentctl is a thin consumer of pkg/turn/pkg/toolcall/pkg/convo,
// the same way examples/ in the teacher repo wires pkg/agent together for
// manual exercising. It is not part of the scheduler's contract.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	root := newRootCmd(&logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
