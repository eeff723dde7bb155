package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/VoiceDesk/runtime/events"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/notify"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
	"github.com/AltairaLabs/VoiceDesk/runtime/session"
	"github.com/AltairaLabs/VoiceDesk/runtime/transport"
)

// NewSendCmd uploads an existing audio file as a voice message.
func NewSendCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send FILE",
		Short: "Send an audio file to the assistant",
		Long: `Upload an existing recording (mp3, wav, ogg, webm, m4a or opus) as a
voice message and print the assistant's answer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))

			if !a.ctx.SignedIn() {
				return errNotSignedIn
			}
			a.listen()

			ctrl, err := session.NewController(a.sessionConfig(), a.device(), a.client)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if _, err := ctrl.SubmitFile(cmd.Context(), args[0]); err != nil {
				var f *session.Failure
				if !errors.As(err, &f) {
					return err
				}
			} else {
				a.formatter.Uploading()
			}
			s, err := a.settle(cmd.Context(), ctrl)
			if err != nil {
				return err
			}
			return a.report(cmd, s)
		},
	}
}

// NewMessageCmd sends a text message.
func NewMessageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "message TEXT...",
		Short: "Send a text message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))

			if !a.ctx.SignedIn() {
				return errNotSignedIn
			}
			a.listen()

			return a.sendMessage(cmd, strings.Join(args, " "))
		},
	}
}

func (a *app) sendMessage(cmd *cobra.Command, text string) error {
	ctx := cmd.Context()
	resp, err := a.client.SendMessage(ctx, text)
	if err != nil {
		logger.ErrorContext(ctx, "Message failed", "error", err)
		if errors.Is(err, transport.ErrUnauthenticated) {
			a.ctx.Toast(events.ToastError, notify.KeySessionExpired)
		} else {
			a.ctx.Toast(events.ToastError, notify.KeyMessageError)
		}
		cmd.SilenceErrors = true
		return err
	}

	result := projector.Project(resp)
	a.formatter.Result(result)
	return nil
}
