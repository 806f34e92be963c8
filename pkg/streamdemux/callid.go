package streamdemux

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// synthesizeCallID builds a <toolName>-<millis>-<6-hex-random> id for a
// function-call event the provider emitted without one.
func synthesizeCallID(toolName string, now time.Time) string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%d-%s", toolName, now.UnixMilli(), hex.EncodeToString(buf[:]))
}
