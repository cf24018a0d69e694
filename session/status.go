package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/hako/durafmt"

	"pongview/wsclient"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// formatDelay 3s / 1m30s / 500ms
func formatDelay(d time.Duration) string {
	return strings.ReplaceAll(durafmt.Parse(d).LimitFirstN(2).Format(shortUnits), " ", "")
}

// statusText 指示器上 "Server: " 之后的文字
func statusText(ev wsclient.Event) string {
	switch ev.State {
	case wsclient.StateIdle:
		return "Idle"
	case wsclient.StateConnecting:
		if ev.Attempt > 0 {
			return fmt.Sprintf("Reconnecting... (attempt %d/%d)", ev.Attempt, ev.MaxAttempts)
		}
		return "Connecting..."
	case wsclient.StateOpen:
		return "Connected"
	case wsclient.StateClosing:
		return "Disconnecting..."
	case wsclient.StateClosed:
		switch {
		case ev.Reconnecting:
			return fmt.Sprintf("Reconnecting in %s (attempt %d/%d)", formatDelay(ev.Delay), ev.Attempt, ev.MaxAttempts)
		case ev.Exhausted:
			return "Disconnected (press r to reconnect)"
		}
		return "Disconnected"
	}
	return ev.State.String()
}
