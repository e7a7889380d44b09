// Package main provides the entry point for the shadowbox CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/shadowbox/internal/audio"
	"github.com/dgnsrekt/shadowbox/internal/gen"
	"github.com/dgnsrekt/shadowbox/internal/theme"
	"github.com/dgnsrekt/shadowbox/shadow"
	"github.com/dgnsrekt/shadowbox/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	themeName     string
	continuous    bool
	speed         float64
	sentenceCount int
	shadowPause   time.Duration
	chatModel     string
	speechModel   string
	voice         string
	mockAudio     bool
	width         uint
	debug         bool

	rootCmd = &cobra.Command{
		Use:   "shadowbox",
		Short: "Language shadowing practice in the terminal",
		Long: "\nShadowbox generates short spoken-English practice scripts on a theme,\n" +
			"reads each sentence aloud twice, and pauses in between so you can\n" +
			"repeat it out loud. Continuous mode rotates through news-grounded\n" +
			"themes for an endless session.",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// secrets are only ever read from the environment, never from flags or the
// config file.
type secrets struct {
	OpenAIKey string `env:"OPENAI_API_KEY"`
	TavilyKey string `env:"TAVILY_API_KEY"`
}

func validateOptions(cmd *cobra.Command) error {
	themeName = viper.GetString("theme")
	continuous = viper.GetBool("continuous")
	speed = viper.GetFloat64("speed")
	sentenceCount = viper.GetInt("sentences")
	shadowPause = viper.GetDuration("shadow_pause")
	chatModel = viper.GetString("chat_model")
	speechModel = viper.GetString("speech_model")
	voice = viper.GetString("voice")
	mockAudio = viper.GetBool("mock_audio")
	debug = viper.GetBool("debug")

	if themeName != "" && continuous {
		return errors.New("cannot use both --theme and --continuous")
	}
	if speed < shadow.MinSpeed || speed > shadow.MaxSpeed {
		return fmt.Errorf("speed must be between %.1f and %.1f, got %.2f",
			shadow.MinSpeed, shadow.MaxSpeed, speed)
	}
	if sentenceCount < 1 || sentenceCount > 20 {
		return fmt.Errorf("sentences must be between 1 and 20, got %d", sentenceCount)
	}
	if shadowPause < 500*time.Millisecond || shadowPause > 30*time.Second {
		return fmt.Errorf("shadow-pause must be between 500ms and 30s, got %s", shadowPause)
	}

	if err := configureLogging(); err != nil {
		return err
	}

	// Detect terminal width for the UI.
	if !cmd.Flags().Changed("width") {
		if term.IsTerminal(int(os.Stdout.Fd())) && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func execute(*cobra.Command, []string) error {
	keys, err := env.ParseAs[secrets]()
	if err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}
	if keys.OpenAIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	catalog, err := theme.Load()
	if err != nil {
		return fmt.Errorf("unable to load theme catalog: %w", err)
	}
	if themeName != "" {
		if _, ok := catalog.Lookup(themeName); !ok {
			return fmt.Errorf("unknown theme %q", themeName)
		}
	}

	generator, err := gen.NewGenerator(keys.OpenAIKey, chatModel)
	if err != nil {
		return fmt.Errorf("unable to create script generator: %w", err)
	}
	synth, err := gen.NewSynthesizer(keys.OpenAIKey, speechModel, voice)
	if err != nil {
		return fmt.Errorf("unable to create speech synthesizer: %w", err)
	}

	var search shadow.SearchProvider
	if keys.TavilyKey != "" {
		sc, err := gen.NewSearchClient(keys.TavilyKey)
		if err != nil {
			return fmt.Errorf("unable to create search client: %w", err)
		}
		search = sc
	} else {
		log.Warn("TAVILY_API_KEY not set, search-grounded themes run without live context")
	}

	var audioCtx audio.Context
	if mockAudio || audio.ShouldUseMock() {
		log.Info("using mock audio output")
		audioCtx = audio.NewMockContext(2 * time.Second)
	} else {
		audioCtx, err = audio.NewContext(audio.DefaultContextConfig())
		if err != nil {
			return fmt.Errorf("unable to open audio device: %w", err)
		}
	}
	channel := audio.NewChannel(audioCtx, audio.DefaultChannelConfig())

	sessionCfg := shadow.DefaultSessionConfig()
	sessionCfg.SentenceCount = sentenceCount
	sessionCfg.Speed = speed
	sessionCfg.Sequencer.ShadowPause = shadowPause
	session := shadow.NewSession(catalog, generator, search, synth, channel, sessionCfg)
	defer session.Stop()

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	uiCfg.Theme = themeName
	uiCfg.Continuous = continuous
	uiCfg.InitialSpeed = speed
	uiCfg.MaxWidth = int(width) //nolint:gosec
	uiCfg.Debug = uiCfg.Debug || debug

	if _, err := ui.NewProgram(uiCfg, session, catalog).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// logClose releases the debug log file, if one was opened.
var logClose = func() error { return nil }

// configureLogging sends logs to a file so they never bleed into the TUI.
// Debug level when requested, discard otherwise.
func configureLogging() error {
	if !debug && os.Getenv("SHADOWBOX_DEBUG") == "" {
		log.SetOutput(io.Discard)
		return nil
	}

	scope := gap.NewScope(gap.User, "shadowbox")
	dir, err := scope.CacheDir()
	if err != nil {
		return fmt.Errorf("unable to find cache directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create cache directory: %w", err)
	}

	path := filepath.Join(dir, "shadowbox.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	logClose = f.Close
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = logClose()
		os.Exit(1)
	}
	_ = logClose()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&themeName, "theme", "t", "", "start practicing this theme immediately")
	rootCmd.Flags().BoolVarP(&continuous, "continuous", "c", false, "rotate through search-grounded themes endlessly")
	rootCmd.Flags().Float64VarP(&speed, "speed", "s", 1.0, "playback speed (0.7-2.0)")
	rootCmd.Flags().IntVarP(&sentenceCount, "sentences", "n", 5, "sentences per script (1-20)")
	rootCmd.Flags().DurationVar(&shadowPause, "shadow-pause", 3*time.Second, "pause after each playback for repeating aloud")
	rootCmd.Flags().StringVar(&chatModel, "chat-model", gen.DefaultChatModel, "model for script generation")
	rootCmd.Flags().StringVar(&speechModel, "speech-model", gen.DefaultSpeechModel, "model for speech synthesis")
	rootCmd.Flags().StringVar(&voice, "voice", gen.DefaultVoice, "synthesis voice")
	rootCmd.Flags().BoolVar(&mockAudio, "mock-audio", false, "run without an audio device")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "wrap output at width (0 for terminal width)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "write debug logs to the cache directory")

	// Config bindings
	_ = viper.BindPFlag("theme", rootCmd.Flags().Lookup("theme"))
	_ = viper.BindPFlag("continuous", rootCmd.Flags().Lookup("continuous"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("sentences", rootCmd.Flags().Lookup("sentences"))
	_ = viper.BindPFlag("shadow_pause", rootCmd.Flags().Lookup("shadow-pause"))
	_ = viper.BindPFlag("chat_model", rootCmd.Flags().Lookup("chat-model"))
	_ = viper.BindPFlag("speech_model", rootCmd.Flags().Lookup("speech-model"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("mock_audio", rootCmd.Flags().Lookup("mock-audio"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("speed", 1.0)
	viper.SetDefault("sentences", 5)
	viper.SetDefault("shadow_pause", 3*time.Second)
	viper.SetDefault("chat_model", gen.DefaultChatModel)
	viper.SetDefault("speech_model", gen.DefaultSpeechModel)
	viper.SetDefault("voice", gen.DefaultVoice)

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "shadowbox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "shadowbox")}, dirs...)
	}
	if c := os.Getenv("SHADOWBOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("shadowbox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("shadowbox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "shadowbox.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
