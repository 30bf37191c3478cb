package study

import "strings"

// Command is one review action. Every input source (keys, typed words,
// card taps) is translated to a Command so all of them behave the same.
type Command int

const (
	CmdNone Command = iota
	CmdFlip
	CmdNext
	CmdPrevious
	CmdRestart
)

func (c Command) String() string {
	switch c {
	case CmdFlip:
		return "flip"
	case CmdNext:
		return "next"
	case CmdPrevious:
		return "previous"
	case CmdRestart:
		return "restart"
	default:
		return "none"
	}
}

// Key names delivered on an InputBus.
const (
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeySpace      = " "
	KeyEnter      = "Enter"
)

// KeyCommand maps a key name to its command.
func KeyCommand(key string) (Command, bool) {
	switch key {
	case KeyArrowRight:
		return CmdNext, true
	case KeyArrowLeft:
		return CmdPrevious, true
	case KeySpace, KeyEnter:
		return CmdFlip, true
	}
	return CmdNone, false
}

// TapCommand is the command for activating the card itself.
func TapCommand() Command { return CmdFlip }

// LineKey translates one line of terminal input into a key name, so typed
// input reaches the viewer through the same path as key presses. The second
// result is false for input that is not a key.
func LineKey(line string) (string, bool) {
	switch line {
	case "", "\r":
		return KeyEnter, true
	case KeySpace:
		return KeySpace, true
	case "\x1b[C", "\x1bOC":
		return KeyArrowRight, true
	case "\x1b[D", "\x1bOD":
		return KeyArrowLeft, true
	}
	return "", false
}

// ParseCommand maps a typed word or single letter to a command. Key-like
// lines (empty line, space, arrow escapes) map through KeyCommand.
func ParseCommand(line string) (Command, bool) {
	if key, ok := LineKey(strings.TrimRight(line, "\n")); ok {
		return KeyCommand(key)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "f", "flip", "tap":
		return CmdFlip, true
	case "n", "next", ">":
		return CmdNext, true
	case "p", "prev", "previous", "<":
		return CmdPrevious, true
	case "r", "restart":
		return CmdRestart, true
	}
	return CmdNone, false
}
