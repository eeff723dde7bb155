package projector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AltairaLabs/VoiceDesk/pkg/testutil"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name         string
		resp         *transport.AudioResponse
		wantText     string
		wantMeeting  bool
		wantFollowUp FollowUpKind
	}{
		{
			name:     "plain response",
			resp:     &transport.AudioResponse{Response: "ok"},
			wantText: "ok",
		},
		{
			name:         "create action",
			resp:         &transport.AudioResponse{Response: "Lembrete criado", NextAction: "create_reminder"},
			wantText:     "Lembrete criado",
			wantFollowUp: FollowUpEntityCreated,
		},
		{
			name:     "non create action",
			resp:     &transport.AudioResponse{Response: "Aqui está", NextAction: "list_expenses"},
			wantText: "Aqui está",
		},
		{
			name:        "meeting",
			resp:        &transport.AudioResponse{Response: "Resumo: ...", IsMeeting: true},
			wantText:    MeetingMarker + "\n\nResumo: ...\n\n" + MeetingFooter,
			wantMeeting: true,
		},
		{
			name:         "meeting with create action",
			resp:         &transport.AudioResponse{Response: "r", IsMeeting: true, NextAction: "create_task"},
			wantText:     MeetingMarker + "\n\nr\n\n" + MeetingFooter,
			wantMeeting:  true,
			wantFollowUp: FollowUpEntityCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.resp)
			assert.Equal(t, tt.wantText, got.AssistantResponseText)
			assert.Equal(t, tt.wantMeeting, got.IsMeetingDetected)
			assert.Equal(t, tt.wantFollowUp, got.FollowUpActionKind)
			assert.Equal(t, tt.wantFollowUp != FollowUpNone, got.HasFollowUp())
		})
	}
}

func TestProject_DegradesWithoutOptionalFields(t *testing.T) {
	got := Project(&transport.AudioResponse{Response: "só o texto"})

	assert.Equal(t, UploadResult{AssistantResponseText: "só o texto"}, got)
}

func TestProject_NilResponse(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, UploadResult{}, Project(nil))
	})
}

func TestProject_CopiesDisplayFields(t *testing.T) {
	got := Project(&transport.AudioResponse{
		Response:      "ok",
		Intent:        "finance",
		Transcription: "gastei dez reais",
		MeetingID:     testutil.Ptr(int64(3)),
	})
	assert.Equal(t, "finance", got.Intent)
	assert.Equal(t, "gastei dez reais", got.TranscriptionText)
	assert.Equal(t, int64(3), *got.MeetingID)
}

func TestProjectMeetingStop(t *testing.T) {
	got := ProjectMeetingStop(&transport.SessionStopped{Message: "Processando"}, testutil.Ptr(int64(9)))
	assert.True(t, got.IsMeetingDetected)
	assert.True(t, strings.HasPrefix(got.AssistantResponseText, MeetingMarker))
	assert.Contains(t, got.AssistantResponseText, "Processando")

	assert.NotPanics(t, func() { ProjectMeetingStop(nil, nil) })
}
