package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# start practicing this theme immediately (empty shows the picker)
theme: ""
# rotate through search-grounded themes endlessly
continuous: false
# playback speed, 0.7 to 2.0
speed: 1.0
# sentences per generated script, 1 to 20
sentences: 5
# pause after each playback for repeating aloud
shadow_pause: 3s

# model for script generation
chat_model: "gpt-4o-mini"
# model for speech synthesis
speech_model: "tts-1"
# synthesis voice
voice: "alloy"

# run without an audio device (also auto-enabled in CI)
mock_audio: false

# API keys are read from the environment only:
#   OPENAI_API_KEY  - script generation and speech synthesis (required)
#   TAVILY_API_KEY  - live search grounding (optional)
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the shadowbox config file",
	Long:    "\nEdit the shadowbox config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "shadowbox config\nshadowbox config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Shadowbox", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
