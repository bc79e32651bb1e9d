package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chayabot/internal/cli/scheme/colours"
	"chayabot/internal/config"
	"chayabot/internal/story/nest"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var app *nest.App

	rootCmd := &cobra.Command{
		Use:   "chayabot",
		Short: "🪄 Your story, now spoken",
		Long: `
┌─────────────────────────────────────┐
│  ✨ Welcome to ChayaBot! 🎙️          │
│  Your Story, Now Spoken             │
└─────────────────────────────────────┘

ChayaBot turns any idea into a narrated story in seconds.
Describe your concept and listen to it come to life.
		`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			config.ConfigureLogging(cfg)

			app, err = nest.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}
			watchSignals(app)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	narrateCmd := &cobra.Command{
		Use:   "narrate [idea...]",
		Short: "🎧 Write a story and narrate it",
		Long:  "Write a story from your idea, synthesize the narration and play it",
		Run:   func(cmd *cobra.Command, args []string) { app.Narrate(cmd, args) },
	}

	writeCmd := &cobra.Command{
		Use:   "write [idea...]",
		Short: "📝 Write a story without narration",
		Long:  "Print the story text for an idea without calling the voice provider",
		Run:   func(cmd *cobra.Command, args []string) { app.WriteStory(cmd, args) },
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show voice settings",
		Long:  "Display the voice engine, model and narration settings in use",
		Run:   func(cmd *cobra.Command, args []string) { app.ShowSettings(cmd, args) },
	}

	narrateCmd.Flags().StringP("key", "k", "", "ElevenLabs API key for this session (never stored)")
	narrateCmd.Flags().Bool("no-play", false, "Do not start playback automatically")

	rootCmd.PersistentFlags().StringP("engine", "e", "", "Voice engine: elevenlabs, google or mock")
	rootCmd.PersistentFlags().String("voice", "", "ElevenLabs voice id")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	viper.BindPFlag("tts.type", rootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("elevenlabs.voice_id", rootCmd.PersistentFlags().Lookup("voice"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(narrateCmd, writeCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// watchSignals ends the session cleanly on SIGINT/SIGTERM.
func watchSignals(app *nest.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Close()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		logrus.Debug("Session closed by signal")
		os.Exit(0)
	}()
}

func init() {
	config.Init()
}
