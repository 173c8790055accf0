package conversation

// Button is one inline button: a label shown to the participant and the
// token sent back when it is pressed.
type Button struct {
	Label string
	Token string
}

// Prompt is one outbound message.
type Prompt struct {
	Text      string
	ParseMode string     // formatting hint, "HTML" or empty
	Buttons   [][]Button // inline keyboard rows
	Menu      [][]string // persistent reply menu rows
	// RemoveMenu asks the channel to hide a previously shown menu.
	RemoveMenu bool
}

// ParseModeHTML marks prompt text as HTML.
const ParseModeHTML = "HTML"

// Effect is one thing the delivery channel must do after a transition.
type Effect interface {
	effect()
}

// Send delivers a new message.
type Send struct {
	Prompt Prompt
}

// EditMarkup replaces the buttons of an earlier message. When the edit
// fails the channel sends Fallback instead.
type EditMarkup struct {
	MessageID int64
	Buttons   [][]Button
	Fallback  Prompt
}

// ClearMarkup removes the buttons of an earlier message. Failure is ignored.
type ClearMarkup struct {
	MessageID int64
}

func (Send) effect()        {}
func (EditMarkup) effect()  {}
func (ClearMarkup) effect() {}

func send(p Prompt) Effect { return Send{Prompt: p} }

func text(s string) Prompt { return Prompt{Text: s} }

func mainMenu() [][]string {
	return [][]string{{MenuEvaluate}, {MenuSwitch}}
}
