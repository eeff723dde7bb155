package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
)

// EventAdapter converts bus events into bubbletea messages.
type EventAdapter struct {
	program *tea.Program
	model   *Model // headless mode
}

// NewEventAdapter creates an adapter that forwards events to the program.
func NewEventAdapter(program *tea.Program) *EventAdapter {
	return &EventAdapter{program: program}
}

// NewEventAdapterWithModel creates an adapter that updates model directly.
func NewEventAdapterWithModel(model *Model) *EventAdapter {
	return &EventAdapter{model: model}
}

// Subscribe attaches the adapter to bus and returns the unsubscribe func.
func (a *EventAdapter) Subscribe(bus *events.EventBus) func() {
	if bus == nil {
		return func() {}
	}
	return bus.SubscribeAll(a.HandleEvent)
}

// HandleEvent converts one event and forwards it.
func (a *EventAdapter) HandleEvent(event *events.Event) {
	if msg := mapEvent(event); msg != nil {
		a.send(msg)
	}
}

func mapEvent(event *events.Event) tea.Msg {
	switch data := event.Data.(type) {
	case events.SessionStartedData:
		return RecordingStartedMsg{SessionID: event.SessionID, Time: event.Timestamp}
	case events.ChunkData:
		return ChunkMsg{SessionID: event.SessionID, Index: data.Index, TotalBytes: data.TotalBytes}
	case events.SessionStoppedData:
		return RecordingStoppedMsg{SessionID: event.SessionID, Duration: data.Duration, Bytes: data.Bytes}
	case events.UploadingData:
		return UploadingMsg{SessionID: event.SessionID, Bytes: data.Bytes}
	case events.ChunkUploadedData:
		return SegmentUploadedMsg{Index: data.Index, Bytes: data.Bytes, Err: data.Err}
	case events.ToastData:
		return ToastMsg(data)
	case events.SignedOutData:
		return SignedOutMsg{Reason: data.Reason}
	default:
		// Outcomes arrive through finishedMsg with the full session.
		return nil
	}
}

func (a *EventAdapter) send(msg tea.Msg) {
	if a.program != nil {
		a.program.Send(msg)
	} else if a.model != nil {
		a.model.Update(msg)
	}
}
