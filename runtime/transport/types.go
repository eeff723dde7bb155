package transport

// AudioResponse is the backend's answer to an audio or text message.
type AudioResponse struct {
	Response      string         `json:"response"`
	Intent        string         `json:"intent,omitempty"`
	Entities      map[string]any `json:"entities,omitempty"`
	NextAction    string         `json:"next_action,omitempty"`
	Transcription string         `json:"transcription,omitempty"`
	IsMeeting     bool           `json:"is_meeting"`
	MeetingID     *int64         `json:"meeting_id,omitempty"`
}

// SessionStarted is returned when a meeting recording session opens.
type SessionStarted struct {
	SessionID      int64  `json:"session_id"`
	MeetingID      *int64 `json:"meeting_id,omitempty"`
	Status         string `json:"status"`
	UploadEndpoint string `json:"upload_endpoint,omitempty"`
}

// ChunkAck acknowledges one uploaded meeting chunk.
type ChunkAck struct {
	ChunkID    int64 `json:"chunk_id"`
	ChunkIndex int   `json:"chunk_index"`
	Received   bool  `json:"received"`
}

// SessionStopped is returned when a meeting recording session closes.
type SessionStopped struct {
	SessionID int64  `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// TokenSource supplies the bearer token for each request. An empty token
// means the user is signed out.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }
