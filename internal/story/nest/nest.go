package nest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"chayabot/internal/audio"
	"chayabot/internal/cli/scheme/colours"
	"chayabot/internal/config"
	"chayabot/internal/domain/story"
	"chayabot/internal/session"
	"chayabot/internal/story/pipeline"
	"chayabot/internal/story/player"
	"chayabot/internal/story/tts"
	"chayabot/internal/story/writer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// featuredTopics are offered while no story exists yet.
var featuredTopics = []string{
	"A magical forest and a lost child",
	"A brave robot and a distant planet",
	"An ancient book and a curious librarian",
}

// App is the terminal front end of a ChayaBot session.
type App struct {
	cfg          *config.Config
	credentials  *session.Credentials
	store        *audio.Store
	writer       writer.Writer
	orchestrator *pipeline.Orchestrator
	player       *player.Controller

	in       *bufio.Reader
	resolved chan pipeline.State
	ctx      context.Context
	Cancel   context.CancelFunc
	once     sync.Once
}

func NewApp(cfg *config.Config) (*App, error) {
	store, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		return nil, err
	}

	synth, err := tts.NewSynthesizer(cfg, store)
	if err != nil {
		return nil, err
	}

	creds := session.NewCredentials(cfg.ElevenLabs.APIKey)
	w := writer.NewTemplateWriter()

	orchestrator, err := pipeline.NewOrchestrator(w, synth, creds, pipeline.Options{
		Timeout: cfg.Timeout,
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, err
	}

	return newApp(cfg, creds, store, w, orchestrator, player.NewController(player.NewBeepBackend()), os.Stdin), nil
}

func newApp(cfg *config.Config, creds *session.Credentials, store *audio.Store, w writer.Writer,
	orchestrator *pipeline.Orchestrator, ctrl *player.Controller, in io.Reader) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:          cfg,
		credentials:  creds,
		store:        store,
		writer:       w,
		orchestrator: orchestrator,
		player:       ctrl,
		in:           bufio.NewReader(in),
		resolved:     make(chan pipeline.State, 8),
		ctx:          ctx,
		Cancel:       cancel,
	}

	orchestrator.Subscribe(app.onGenerationState)
	ctrl.Subscribe(app.onPlaybackState)
	return app
}

func (a *App) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to ChayaBot! 🌟")
	colours.Magic.Println("   Your Story, Now Spoken")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • chayabot narrate [idea] - Write a story and narrate it")
	fmt.Println("  • chayabot write [idea]   - Write a story without narration")
	fmt.Println("  • chayabot settings       - Show voice settings")
	fmt.Println()
	colours.Prompt.Println("✨ Turn any idea into a narrated story in seconds ✨")
}

// Narrate runs the interactive generate-and-listen loop.
func (a *App) Narrate(cmd *cobra.Command, args []string) {
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		a.credentials.Set(key)
	}
	autoPlay := true
	if noPlay, _ := cmd.Flags().GetBool("no-play"); noPlay {
		autoPlay = false
	}

	if _, ok := a.credentials.Get(); !ok {
		a.askCredential()
	}

	topic := strings.Join(args, " ")
	if strings.TrimSpace(topic) == "" {
		topic = a.askTopic()
	}

	for {
		if topic == "" {
			return
		}
		final, fresh, ok := a.generate(topic)
		if !ok {
			return
		}
		if fresh && final.Phase == pipeline.PhaseReady {
			a.showStory(final.Story)
			if autoPlay {
				a.play(final.Story)
			}
		}

		next, quit := a.controlLoop(final, topic)
		if quit {
			return
		}
		topic = next
	}
}

// WriteStory prints story text only.
func (a *App) WriteStory(cmd *cobra.Command, args []string) {
	topic := strings.Join(args, " ")
	if strings.TrimSpace(topic) == "" {
		topic = a.askTopic()
	}
	text, err := a.writer.Write(a.ctx, topic)
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}
	fmt.Println()
	colours.Info.Println("📄 Story Text:")
	colours.Story.Println(text)
}

func (a *App) ShowSettings(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("⚙️ Voice Settings ⚙️")
	fmt.Println()

	colours.Prompt.Println("🎤 Engine:")
	fmt.Printf("  • Type: %s (available: %v)\n", a.cfg.TTSType, tts.AvailableEngines())
	fmt.Printf("  • API key: %s\n", a.credentials.Masked())
	fmt.Println()

	colours.Prompt.Println("🗣️ ElevenLabs:")
	fmt.Printf("  • Endpoint: %s/v1/text-to-speech/%s\n", a.cfg.ElevenLabs.BaseURL, a.cfg.ElevenLabs.VoiceID)
	fmt.Printf("  • Model: %s\n", a.cfg.ElevenLabs.ModelID)
	fmt.Printf("  • Stability: %.2f | Similarity boost: %.2f\n", a.cfg.ElevenLabs.Stability, a.cfg.ElevenLabs.SimilarityBoost)
	fmt.Println()

	colours.Prompt.Println("☁️ Google:")
	fmt.Printf("  • Voice: %s (%s)\n", a.cfg.Google.Voice, a.cfg.Google.LanguageCode)
	fmt.Println()

	colours.Info.Printf("⏱️ Timeout: %s | 🧵 Workers: %d | 📁 Audio dir: %s\n", a.cfg.Timeout, a.cfg.Workers, a.store.Dir())
}

// Close ends the session: stops playback, drops in-flight work, releases
// every audio resource and forgets the credential.
func (a *App) Close() {
	a.once.Do(func() {
		a.Cancel()
		if err := a.player.Dispose(); err != nil {
			logrus.WithError(err).Warn("Failed to dispose player")
		}
		if err := a.orchestrator.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close orchestrator")
		}
		if err := a.store.ReleaseAll(); err != nil {
			logrus.WithError(err).Warn("Failed to release audio")
		}
		a.credentials.Clear()
	})
}

// generate runs one cycle for topic and waits for its outcome. fresh is false
// when the request was rejected up front; state is then the story still
// current, which keeps playing. ok is false once the session is cancelled.
func (a *App) generate(topic string) (state pipeline.State, fresh, ok bool) {
	if _, err := story.NormalizeTopic(topic); err != nil {
		colours.Warning.Println("✏️  Please describe your idea first.")
		return a.orchestrator.State(), false, true
	}
	if _, present := a.credentials.Get(); !present {
		a.showFailure(pipeline.State{Phase: pipeline.PhaseFailed, Kind: story.KindMissingCredential})
		return a.orchestrator.State(), false, true
	}

	// the previous narration must stop before its audio is released
	if err := a.player.Dispose(); err != nil {
		logrus.WithError(err).Warn("Failed to dispose player")
	}

	a.drainResolved()

	fmt.Println()
	seq, err := a.orchestrator.Generate(a.ctx, topic)
	if err != nil {
		current := a.orchestrator.State()
		if current.Seq != seq || !current.Terminal() {
			colours.Error.Printf("❌ %v\n", err)
			return current, false, true
		}
		a.showFailure(current)
		return current, true, true
	}

	for {
		select {
		case <-a.ctx.Done():
			return pipeline.State{}, false, false
		case resolved := <-a.resolved:
			if resolved.Seq != seq {
				continue
			}
			if resolved.Phase == pipeline.PhaseFailed {
				a.showFailure(resolved)
			}
			return resolved, true, true
		}
	}
}

func (a *App) drainResolved() {
	for {
		select {
		case <-a.resolved:
		default:
			return
		}
	}
}

func (a *App) controlLoop(last pipeline.State, topic string) (string, bool) {
	for {
		select {
		case <-a.ctx.Done():
			return "", true
		default:
		}

		a.printControls(last)
		input, err := a.in.ReadString('\n')
		if err != nil && input == "" {
			return "", true
		}

		command, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
		switch strings.ToLower(command) {
		case "p", "pause", "play":
			if last.Phase != pipeline.PhaseReady {
				colours.Info.Println("ℹ️  Nothing to play yet")
				continue
			}
			if !a.player.State().HasResource {
				a.play(last.Story)
				continue
			}
			if err := a.player.Toggle(); err != nil {
				colours.Error.Printf("❌ Playback error: %v\n", err)
			}
		case "n", "new":
			return a.askTopic(), false
		case "r", "retry":
			return topic, false
		case "k", "key":
			a.askCredential()
		case "d", "download", "save":
			if last.Phase != pipeline.PhaseReady || !last.Story.HasAudio() {
				colours.Info.Println("ℹ️  Nothing to save yet")
				continue
			}
			a.download(last.Story, strings.TrimSpace(arg))
		case "s", "stop":
			if err := a.player.Dispose(); err != nil {
				logrus.WithError(err).Warn("Failed to dispose player")
			}
			colours.Warning.Println("⏹️  Stopped")
		case "q", "quit":
			colours.Warning.Println("👋 Sweet dreams! 🌙")
			return "", true
		case "":
			continue
		default:
			colours.Info.Println("ℹ️  Use 'p' play/pause, 'd [path]' save audio, 'n' new story, 'r' retry, 'k' API key, 's' stop, 'q' quit")
		}
	}
}

func (a *App) printControls(last pipeline.State) {
	if last.Phase == pipeline.PhaseReady {
		fmt.Print("\n⏯️  'p' play/pause, 'd [path]' save audio, 's' stop, 'n' new story, 'r' regenerate, 'k' API key, 'q' quit: ")
		return
	}
	fmt.Print("\n🔁 'r' retry, 'k' change API key, 'n' new story, 'q' quit: ")
}

func (a *App) play(s *story.Story) {
	if err := a.player.Play(s); err != nil {
		colours.Error.Printf("❌ Playback error: %v\n", err)
		return
	}
	colours.Success.Println("🎵 Playing narration... 🎵")
}

func (a *App) download(s *story.Story, path string) {
	if path == "" {
		path = audioFileName(s)
	}
	n, err := s.Audio.SaveAs(path)
	if err != nil {
		colours.Error.Printf("❌ Could not save audio: %v\n", err)
		return
	}
	logrus.WithFields(logrus.Fields{"audio_id": s.Audio.ID, "path": path}).Info("Audio saved")
	colours.Success.Printf("💾 Saved %d bytes to %s\n", n, path)
}

// audioFileName turns the topic into a file name such as "a-brave-robot.mp3".
func audioFileName(s *story.Story) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s.Topic) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteRune('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "story"
	}
	return fmt.Sprintf("%s.%s", name, s.Audio.Format)
}

func (a *App) showStory(s *story.Story) {
	fmt.Println()
	colours.Title.Println("📖 Your Story")
	colours.Story.Println(s.Text)
	fmt.Println()
	colours.Success.Println("✅ Narration ready!")
}

func (a *App) showFailure(state pipeline.State) {
	switch state.Kind {
	case story.KindMissingCredential:
		colours.Error.Println("🔑 Please enter your ElevenLabs API key")
	case story.KindSynthesisFailed:
		colours.Error.Println("❌ Error generating story. Please check your API key and try again.")
	case story.KindWritingFailed:
		colours.Error.Println("❌ Could not write your story. Please try again.")
	case story.KindBusy:
		colours.Warning.Println("⏳ Still finishing earlier stories, please try again in a moment.")
	default:
		colours.Error.Printf("❌ %v\n", state.Err)
	}
}

func (a *App) askCredential() {
	colours.Prompt.Print("🔑 Enter your ElevenLabs API key: ")
	input, _ := a.in.ReadString('\n')
	a.credentials.Set(input)
}

func (a *App) askTopic() string {
	if a.orchestrator.State().Story == nil {
		colours.Info.Println("📚 Featured stories:")
		for i, topic := range featuredTopics {
			fmt.Printf("  %d. %s\n", i+1, topic)
		}
		colours.Prompt.Print("✨ Enter your idea or pick a number: ")
	} else {
		colours.Prompt.Print("✨ Enter your idea (e.g. 'a tree and a carpenter'): ")
	}
	input, _ := a.in.ReadString('\n')
	return pickTopic(strings.TrimSpace(input))
}

func pickTopic(input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(featuredTopics) {
		return featuredTopics[n-1]
	}
	return input
}

func (a *App) onGenerationState(state pipeline.State) {
	if label := state.Label(); label != "" {
		colours.Magic.Printf("🪄 %s\n", label)
	}
	if state.Terminal() {
		select {
		case a.resolved <- state:
		default:
			logrus.WithField("seq", state.Seq).Debug("Dropping unobserved generation result")
		}
	}
}

func (a *App) onPlaybackState(state player.State) {
	logrus.WithFields(logrus.Fields{
		"has_resource": state.HasResource,
		"playing":      state.IsPlaying,
	}).Debug("Playback state changed")
}
