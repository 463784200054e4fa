package command

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Message
		wantErr bool
	}{
		{
			name: "start recording",
			line: "START_RECORDING 20250101T0900-ann-RVI-R.csv",
			want: Message{Kind: KindStartRecording, Filename: "20250101T0900-ann-RVI-R.csv"},
		},
		{name: "stop recording", line: "STOP_RECORDING", want: Message{Kind: KindStopRecording}},
		{name: "close window", line: "CLOSE_WINDOW", want: Message{Kind: KindCloseWindow}},
		{name: "shutdown", line: "SHUTDOWN", want: Message{Kind: KindShutdown}},
		{name: "start without filename", line: "START_RECORDING ", wantErr: true},
		{name: "unknown command", line: "PAUSE", wantErr: true},
		{name: "empty line", line: "", wantErr: true},
		{name: "lowercase is rejected", line: "shutdown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %+v", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestEncodeParseForms(t *testing.T) {
	msgs := []Message{
		StartRecording("a.csv"),
		{Kind: KindStopRecording},
		{Kind: KindCloseWindow},
		{Kind: KindShutdown},
	}
	for _, m := range msgs {
		got, err := Parse(m.Encode())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", m.Encode(), err)
		}
		if got != m {
			t.Errorf("Parse(Encode(%+v)) = %+v", m, got)
		}
	}
}

func TestSendPollConsumesOnce(t *testing.T) {
	ch := New(t.TempDir())

	if err := ch.Send(StartRecording("a.csv")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m, ok := ch.Poll()
	if !ok {
		t.Fatal("expected a pending command")
	}
	if m.Kind != KindStartRecording || m.Filename != "a.csv" {
		t.Errorf("Poll = %+v", m)
	}

	if _, err := os.Stat(ch.commandPath()); !os.IsNotExist(err) {
		t.Error("command file should be deleted after poll")
	}
	if _, ok := ch.Poll(); ok {
		t.Error("second poll must not see the consumed command")
	}
}

func TestPendingTracksSlotLifecycle(t *testing.T) {
	ch := New(t.TempDir())

	if ch.Pending() {
		t.Fatal("empty slot must not report pending")
	}
	if err := ch.Send(StartRecording("a.csv")); err != nil {
		t.Fatal(err)
	}
	if !ch.Pending() {
		t.Fatal("unconsumed command must report pending")
	}
	if _, ok := ch.Poll(); !ok {
		t.Fatal("expected a pending command")
	}
	if ch.Pending() {
		t.Error("consumed command must clear the pending state")
	}
}

func TestPollNoCommand(t *testing.T) {
	ch := New(t.TempDir())
	if _, ok := ch.Poll(); ok {
		t.Error("expected no pending command in empty directory")
	}
}

func TestPollMalformedCommandIsDropped(t *testing.T) {
	ch := New(t.TempDir())
	if err := os.WriteFile(ch.commandPath(), []byte("do the thing"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := ch.Poll(); ok {
		t.Error("malformed command must be dropped")
	}
	if _, err := os.Stat(ch.commandPath()); !os.IsNotExist(err) {
		t.Error("malformed command file must still be consumed")
	}
}

func TestSendOverwritesPending(t *testing.T) {
	ch := New(t.TempDir())
	if err := ch.Send(StartRecording("a.csv")); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(Message{Kind: KindShutdown}); err != nil {
		t.Fatal(err)
	}

	m, ok := ch.Poll()
	if !ok || m.Kind != KindShutdown {
		t.Errorf("expected last write to win, got %+v ok=%v", m, ok)
	}
}

func TestReadyFileLifecycle(t *testing.T) {
	dir := t.TempDir()
	ch := New(dir)

	if _, ok := ch.ReadyPID(); ok {
		t.Fatal("no ready file expected before publish")
	}

	if err := ch.PublishReady(4242); err != nil {
		t.Fatalf("PublishReady: %v", err)
	}
	pid, ok := ch.ReadyPID()
	if !ok || pid != 4242 {
		t.Errorf("ReadyPID = %d ok=%v, want 4242", pid, ok)
	}

	ch.RetractReady()
	if _, ok := ch.ReadyPID(); ok {
		t.Error("ready file should be gone after retract")
	}
	if _, err := os.Stat(filepath.Join(dir, readyFile)); !os.IsNotExist(err) {
		t.Error("ready file should be removed from disk")
	}
}
