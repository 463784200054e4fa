package command

import (
	"fmt"
	"strings"
)

// Kind identifies a control message.
type Kind int

const (
	KindStartRecording Kind = iota
	KindStopRecording
	KindCloseWindow
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindStartRecording:
		return "START_RECORDING"
	case KindStopRecording:
		return "STOP_RECORDING"
	case KindCloseWindow:
		return "CLOSE_WINDOW"
	case KindShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Message is one control command from the session runner to the
// tracker. Filename is set only for KindStartRecording.
type Message struct {
	Kind     Kind
	Filename string
}

// StartRecording builds a start message for the given CSV filename.
func StartRecording(filename string) Message {
	return Message{Kind: KindStartRecording, Filename: filename}
}

// Encode renders the single-line wire form of the message.
func (m Message) Encode() string {
	if m.Kind == KindStartRecording {
		return "START_RECORDING " + m.Filename
	}
	return m.Kind.String()
}

// Parse decodes one line of command-file content into a Message.
// Anything outside the four literal forms is an error; callers log and
// drop such content rather than failing.
func Parse(line string) (Message, error) {
	switch {
	case strings.HasPrefix(line, "START_RECORDING "):
		filename := strings.TrimSpace(strings.TrimPrefix(line, "START_RECORDING "))
		if filename == "" {
			return Message{}, fmt.Errorf("start command missing filename")
		}
		return Message{Kind: KindStartRecording, Filename: filename}, nil
	case line == "STOP_RECORDING":
		return Message{Kind: KindStopRecording}, nil
	case line == "CLOSE_WINDOW":
		return Message{Kind: KindCloseWindow}, nil
	case line == "SHUTDOWN":
		return Message{Kind: KindShutdown}, nil
	}
	return Message{}, fmt.Errorf("unrecognized command %q", line)
}
