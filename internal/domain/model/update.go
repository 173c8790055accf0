package model

import "time"

// Update is one inbound event from the delivery channel: either free text
// typed by the participant or the token of a button they pressed.
type Update struct {
	ID            string    // idempotency key assigned by the channel
	ParticipantID int64     // chat participant the conversation belongs to
	MessageID     int64     // message carrying the pressed button, 0 when unknown
	Text          string    // typed text; empty for button presses
	Choice        string    // callback token; empty for text
	ReceivedAt    time.Time // when the adapter accepted the update
}

// IsChoice reports whether the update is a button press.
func (u Update) IsChoice() bool { return u.Choice != "" }
