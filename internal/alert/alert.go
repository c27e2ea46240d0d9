// Package alert implements the Alerts contract the sequencer calls
// into whenever a payout needs human attention (amount mismatch,
// post-broadcast crash, stalled receipt). Fan-out to an actual
// channel (Telegram, PagerDuty, ...) is an out-of-scope collaborator;
// this package only gives that call somewhere real to land.
package alert

import "log"

// Logger is an Alerts implementation that writes to the process log,
// tagging each line with the channel list it would otherwise have
// fanned out to.
type Logger struct{}

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) SendMessage(text string, channels []string) {
	log.Printf("ALERT %v: %s", channels, text)
}
