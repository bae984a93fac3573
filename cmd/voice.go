package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/voice"
)

var (
	voiceIn   string
	voiceOut  string
	voiceWait time.Duration
	voiceSave bool
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Talk with scholar through a live audio session",
	Long: `Stream raw 16 kHz mono PCM16 audio to a live session and record the spoken reply.

Examples:
  scholar voice --in question.pcm --out reply.wav
  arecord -f S16_LE -r 16000 -c 1 -t raw | scholar voice --in - --out reply.wav

Transcripts are printed as they arrive. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if _, err := a.requireStudio(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		capture := func(context.Context) (voice.Capture, error) {
			if voiceIn == "-" {
				return voice.NewReaderCapture(io.NopCloser(os.Stdin), false), nil
			}
			f, err := os.Open(voiceIn)
			if err != nil {
				return nil, err
			}
			return voice.NewReaderCapture(f, true), nil
		}

		var mirror func(voice.Transcript)
		if voiceSave {
			conv, err := a.store.Active()
			if err != nil {
				return err
			}
			mirror = voice.MirrorTo(a.store, conv.ID, func(err error) {
				a.logger.Warn("failed to store transcript", "error", err)
			})
		}

		out := voice.NewWAVOutput()
		turnDone := make(chan struct{}, 1)
		inputDone := make(chan struct{})
		failed := make(chan error, 1)

		green := color.New(color.FgGreen)
		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)
		cb := voice.Callbacks{
			OnState: func(s voice.State) { dim.Fprintf(os.Stderr, "  [%s]\n", s) },
			OnTranscript: func(t voice.Transcript) {
				if mirror != nil {
					mirror(t)
				}
				if t.Sender == history.SenderUser {
					green.Fprintf(os.Stderr, "\r  you → %s", t.Text)
				} else {
					cyan.Fprintf(os.Stderr, "\r  scholar → %s", t.Text)
				}
			},
			OnTurnComplete: func() {
				fmt.Fprintln(os.Stderr)
				select {
				case turnDone <- struct{}{}:
				default:
				}
			},
			OnInterrupted: func() { dim.Fprintln(os.Stderr, "\n  (interrupted)") },
			OnInputEnd:    func() { close(inputDone) },
			OnError: func(err error) {
				select {
				case failed <- err:
				default:
				}
			},
		}

		dial := voice.GeminiDialer(a.cfg.GoogleAPIKey, ai.SystemInstruction(ai.ModeChat), nil)
		player := voice.NewPlayer(out)
		session := voice.NewSession(dial, capture, player, cb, a.logger)
		if err := session.Start(ctx); err != nil {
			return err
		}

		var runErr error
		select {
		case <-ctx.Done():
		case runErr = <-failed:
		case <-inputDone:
			// The reply is still arriving after the last input frame.
			select {
			case <-turnDone:
				drain(ctx, player)
			case runErr = <-failed:
			case <-time.After(voiceWait):
			case <-ctx.Done():
			}
		}
		session.Stop()

		if voiceOut != "" {
			if err := out.Save(voiceOut); err != nil {
				return fmt.Errorf("failed to save audio: %w", err)
			}
			dim.Fprintf(os.Stderr, "\n  Reply audio saved to %s\n", voiceOut)
		}
		return runErr
	},
}

func init() {
	voiceCmd.Flags().StringVar(&voiceIn, "in", "-", "16 kHz PCM16 input file, or - for stdin")
	voiceCmd.Flags().StringVarP(&voiceOut, "out", "o", "reply.wav", "Where to save the spoken reply (empty to skip)")
	voiceCmd.Flags().DurationVar(&voiceWait, "wait", 15*time.Second, "How long to wait for the reply after input ends")
	voiceCmd.Flags().BoolVar(&voiceSave, "save", true, "Keep transcripts in the active conversation")
}

// drain waits for scheduled audio to finish; stopping earlier cuts the reply.
func drain(ctx context.Context, p *voice.Player) {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for p.Pending() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
