// Package notify holds the localized toast texts shown for session outcomes.
package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a toast text.
type Key string

// Toast keys.
const (
	KeyRecordingStarted  Key = "recording.started"
	KeyRecordingStopped  Key = "recording.stopped"
	KeyMeetingStarted    Key = "meeting.started"
	KeyMicrophoneError   Key = "microphone.error"
	KeyCaptureFailed     Key = "capture.failed"
	KeyMeetingProcessed  Key = "result.meeting"
	KeyActionCreated     Key = "result.action_created"
	KeyResponseReceived  Key = "result.received"
	KeyAudioError        Key = "upload.audio_error"
	KeyMessageError      Key = "upload.message_error"
	KeyNetworkError      Key = "upload.network_error"
	KeyTimeout           Key = "upload.timeout"
	KeyServerError       Key = "upload.server_error"
	KeySessionExpired    Key = "auth.expired"
	KeySignedIn          Key = "auth.signed_in"
	KeyUnsupportedFormat Key = "file.unsupported"
	KeyFileSelected      Key = "file.selected"
)

// Supported locales.
var (
	PortugueseBR = language.BrazilianPortuguese
	English      = language.English
)

var texts = map[Key][2]string{
	KeyRecordingStarted:  {"Gravação iniciada", "Recording started"},
	KeyRecordingStopped:  {"Gravação finalizada", "Recording finished"},
	KeyMeetingStarted:    {"Gravação de reunião iniciada", "Meeting recording started"},
	KeyMicrophoneError:   {"Erro ao acessar microfone", "Could not access the microphone"},
	KeyCaptureFailed:     {"A gravação foi interrompida", "Recording was interrupted"},
	KeyMeetingProcessed:  {"Reunião transcrita e resumida!", "Meeting transcribed and summarized!"},
	KeyActionCreated:     {"Ação criada com sucesso!", "Action created!"},
	KeyResponseReceived:  {"Resposta recebida", "Response received"},
	KeyAudioError:        {"Erro ao processar áudio", "Error processing audio"},
	KeyMessageError:      {"Erro ao enviar mensagem", "Error sending message"},
	KeyNetworkError:      {"Sem conexão com o servidor", "Could not reach the server"},
	KeyTimeout:           {"O servidor demorou demais para responder", "The server took too long to respond"},
	KeyServerError:       {"Erro no servidor (%d)", "Server error (%d)"},
	KeySessionExpired:    {"Sessão expirada. Faça login novamente.", "Session expired. Please sign in again."},
	KeySignedIn:          {"Login realizado", "Signed in"},
	KeyUnsupportedFormat: {"Formato de áudio não suportado", "Unsupported audio format"},
	KeyFileSelected:      {"Arquivo selecionado: %s", "File selected: %s"},
}

var builder = newBuilder()

func newBuilder() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(PortugueseBR))
	for key, t := range texts {
		_ = b.SetString(PortugueseBR, string(key), t[0])
		_ = b.SetString(English, string(key), t[1])
	}
	return b
}

// Catalog renders toast texts in one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New creates a catalog for locale (e.g. "pt-BR", "en"). Unknown or empty
// locales fall back to Brazilian Portuguese.
func New(locale string) *Catalog {
	tag := PortugueseBR
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			matcher := language.NewMatcher([]language.Tag{PortugueseBR, English})
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No && idx == 1 {
				tag = English
			}
		}
	}
	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Locale returns the resolved locale.
func (c *Catalog) Locale() language.Tag {
	return c.tag
}

// Text renders key with args.
func (c *Catalog) Text(key Key, args ...any) string {
	return c.printer.Sprintf(string(key), args...)
}
