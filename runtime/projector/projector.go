// Package projector turns backend responses into the user-facing result of
// an upload.
package projector

import (
	"strings"

	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

// Meeting result decoration.
const (
	MeetingMarker = "📝 **Reunião processada!**"
	MeetingFooter = "_Transcrição salva. Acesse a seção Reuniões para ver o resumo completo._"
)

// createActionMarker is the next_action substring that means the backend
// created an entity (reminder, expense, task).
const createActionMarker = "create"

// FollowUpKind tells the UI which confirmation to show. The zero value means none.
type FollowUpKind string

// Follow-up kinds.
const (
	FollowUpNone          FollowUpKind = ""
	FollowUpEntityCreated FollowUpKind = "entity_created"
)

// UploadResult is the projected outcome of an upload or text message.
type UploadResult struct {
	TranscriptionText     string
	IsMeetingDetected     bool
	AssistantResponseText string
	FollowUpActionKind    FollowUpKind

	Intent     string
	NextAction string
	MeetingID  *int64
}

// HasFollowUp reports whether a follow-up confirmation should be shown.
func (r UploadResult) HasFollowUp() bool {
	return r.FollowUpActionKind != FollowUpNone
}

// Project maps a backend response. Optional fields that are absent leave
// their result fields empty; a nil response yields the zero result.
func Project(resp *transport.AudioResponse) UploadResult {
	if resp == nil {
		return UploadResult{}
	}

	result := UploadResult{
		TranscriptionText:     resp.Transcription,
		IsMeetingDetected:     resp.IsMeeting,
		AssistantResponseText: resp.Response,
		Intent:                resp.Intent,
		NextAction:            resp.NextAction,
		MeetingID:             resp.MeetingID,
	}

	if resp.IsMeeting {
		result.AssistantResponseText = MeetingMarker + "\n\n" + resp.Response + "\n\n" + MeetingFooter
	}

	if strings.Contains(resp.NextAction, createActionMarker) {
		result.FollowUpActionKind = FollowUpEntityCreated
	}

	return result
}

// ProjectMeetingStop maps the final answer of a chunked meeting session.
// The recording is a meeting by construction.
func ProjectMeetingStop(resp *transport.SessionStopped, meetingID *int64) UploadResult {
	msg := ""
	if resp != nil {
		msg = resp.Message
	}
	return UploadResult{
		IsMeetingDetected:     true,
		AssistantResponseText: MeetingMarker + "\n\n" + msg + "\n\n" + MeetingFooter,
		MeetingID:             meetingID,
	}
}
