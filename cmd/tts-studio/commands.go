package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/book-expert/tts-studio/internal/playback"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/book-expert/tts-studio/internal/ui"
	"github.com/book-expert/tts-studio/internal/voices"
	"github.com/spf13/cobra"
)

var errNoInput = errors.New("either --text or --file is required")

type inputFlags struct {
	text string
	file string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "text to speak")
	cmd.Flags().StringVar(&f.file, "file", "", "path of a .txt file to speak")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
}

// load puts the flagged input into the session's text box.
func (f *inputFlags) load(a *app) error {
	switch {
	case f.file != "":
		return a.session.BrowseFile(f.file)
	case f.text != "":
		a.session.SetText(f.text)

		return nil
	default:
		return errNoInput
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tts-studio",
		Short: "Text-to-speech front-end",
		Long: `tts-studio lets you enter or load text, pick a voice, rate and pitch,
listen through the local speech synthesizer and download an audio file
rendered by the backend.

Without a subcommand it starts the interactive terminal front-end.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, configPath, func(ctx context.Context, a *app) error {
				return ui.Run(ctx, a.session)
			})
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: project configuration)")

	root.AddCommand(
		newUICmd(&configPath),
		newSpeakCmd(&configPath),
		newDownloadCmd(&configPath),
		newVoicesCmd(&configPath),
		newLanguagesCmd(&configPath),
	)

	return root
}

func withApp(cmd *cobra.Command, configPath string, fn func(context.Context, *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}

	defer a.close()

	return fn(ctx, a)
}

// printStatus echoes every status message to w.
func printStatus(a *app, w io.Writer) {
	a.session.Status().Subscribe(func(s status.Status) {
		if s.Message != "" {
			_, _ = fmt.Fprintln(w, s.Message)
		}
	})
}

func newUICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Start the interactive terminal front-end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				return ui.Run(ctx, a.session)
			})
		},
	}
}

func newSpeakCmd(configPath *string) *cobra.Command {
	var (
		input inputFlags
		voice int
		rate  float64
		pitch float64
	)

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Speak text through the local speech synthesizer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				printStatus(a, cmd.ErrOrStderr())

				err := a.session.Start(ctx)
				if err != nil {
					return err
				}

				if rate == 0 {
					rate = a.cfg.Speech.DefaultRate
				}

				if pitch == 0 {
					pitch = a.cfg.Speech.DefaultPitch
				}

				err = a.session.Configure(voice, rate, pitch)
				if err != nil {
					return err
				}

				err = input.load(a)
				if err != nil {
					return err
				}

				return speak(ctx, a)
			})
		},
	}

	input.register(cmd)
	cmd.Flags().IntVar(&voice, "voice", voices.DefaultIndex, "voice index from the voices command (-1 for the default)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "speaking rate (default from configuration)")
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "pitch (default from configuration)")

	return cmd
}

// speak plays the loaded text and waits until playback ends or ctx is done.
func speak(ctx context.Context, a *app) error {
	done := make(chan playback.Event, 1)

	a.session.Player().Subscribe(func(event playback.Event) {
		switch event.Kind {
		case playback.EventFinished, playback.EventFailed, playback.EventStopped:
			select {
			case done <- event:
			default:
			}
		case playback.EventNone, playback.EventStarted, playback.EventPaused, playback.EventResumed:
		}
	})

	err := a.session.Generate()
	if err != nil {
		return err
	}

	_, err = a.session.Play()
	if err != nil {
		return err
	}

	select {
	case event := <-done:
		return event.Err
	case <-ctx.Done():
		a.session.Stop()

		return ctx.Err()
	}
}

func newDownloadCmd(configPath *string) *cobra.Command {
	var (
		input inputFlags
		voice string
		model string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Render text on the backend and save the audio file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				printStatus(a, cmd.ErrOrStderr())

				err := input.load(a)
				if err != nil {
					return err
				}

				a.session.SetRemote(voice, model)

				location, err := a.session.DownloadNow(ctx)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), location)

				return err
			})
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&voice, "voice", "", "backend voice (default from configuration)")
	cmd.Flags().StringVar(&model, "model", "", "backend model (default from configuration)")

	return cmd
}

func newVoicesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the local speech synthesizer's voices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				err := a.session.Start(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()

				_, err = fmt.Fprintf(out, "%3d  %s\n", voices.DefaultIndex, voices.DefaultLabel)
				if err != nil {
					return err
				}

				for index, voice := range a.session.Catalog().List() {
					_, err = fmt.Fprintf(out, "%3d  %s\n", index, voice.Label())
					if err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func newLanguagesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages the render backend supports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				languages, err := a.remote.ListLanguages(ctx)
				if err != nil {
					return err
				}

				for _, code := range slices.Sorted(maps.Keys(languages)) {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", code, languages[code])
					if err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}
