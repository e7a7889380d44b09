package gen

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/dgnsrekt/shadowbox/shadow"
)

// Default speech settings.
const (
	DefaultSpeechModel = "tts-1"
	DefaultVoice       = "alloy"
)

// Synthesizer implements shadow.SpeechSynthesizer on the OpenAI speech API.
// It requests raw PCM so clips go straight to the audio channel without
// decoding: 24 kHz, 16-bit, mono.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  string
}

// NewSynthesizer constructs a speech synthesizer.
func NewSynthesizer(apiKey, model, voice string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gen: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	return &Synthesizer{
		client: oai.NewClient(cfg.requestOptions(apiKey)...),
		model:  model,
		voice:  voice,
	}, nil
}

// Synthesize implements shadow.SpeechSynthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, speed float64) ([]byte, error) {
	speed = shadow.ClampSpeed(speed)

	res, err := s.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(s.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
		Speed:          param.NewOpt(speed),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shadow.ErrSynthesisFailed, err)
	}
	defer res.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio body: %v", shadow.ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", shadow.ErrSynthesisFailed)
	}

	log.Debug("speech synthesized", "chars", len(text), "speed", speed, "bytes", len(data))
	return data, nil
}
