package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ui"
	"github.com/arin/scholar/internal/voice"
)

var speakOut string

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Read text aloud into a WAV file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		studio, err := a.requireStudio()
		if err != nil {
			return err
		}

		sp := ui.NewSpinner("Generating speech...")
		sp.Start()
		pcm, err := studio.Speech(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			sp.Fail("Speech generation failed")
			return err
		}

		f, err := os.Create(speakOut)
		if err != nil {
			sp.Fail("Could not create output file")
			return err
		}
		if err := voice.WriteWAV(f, pcm, voice.OutputSampleRate); err != nil {
			f.Close()
			sp.Fail("Could not write audio")
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		sp.Success(fmt.Sprintf("Saved %s (%s)", speakOut, voice.FrameDuration(len(pcm), voice.OutputSampleRate).Round(100*time.Millisecond)))
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "speech.wav", "Output WAV file")
}
