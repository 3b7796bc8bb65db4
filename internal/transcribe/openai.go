package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/cuesync/internal/subtitle"
)

// implements Transcriber using the OpenAI audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

// verbose_json response from whisper
type whisperVerboseResponse struct {
	Text     string              `json:"text"`
	Segments []transcriptSegment `json:"segments"`
	Language string              `json:"language"`
	Duration float64             `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var raw, text, lang string
	if englishOutput(t.options.TranscriptLanguage) {
		params := openai.AudioTranslationNewParams{
			File:           file,
			Model:          openai.AudioModel(t.model),
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}
		resp, err := t.client.Audio.Translations.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}
		raw, text, lang = resp.RawJSON(), resp.Text, "en"
	} else {
		params := openai.AudioTranscriptionNewParams{
			File:                   file,
			Model:                  openai.AudioModel(t.model),
			ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
			TimestampGranularities: []string{"segment"},
		}
		if t.options.Language != "" {
			params.Language = openai.String(t.options.Language)
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}
		resp, err := t.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		raw, text, lang = resp.RawJSON(), resp.Text, t.options.Language
	}

	res, err := parseVerboseJSON(raw)
	if err != nil {
		// whole text as one cue when segment timing is unavailable
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, err
		}
		return &Result{
			Segments: []subtitle.Segment{{Text: text, EndTime: 5 * time.Second}},
			Language: lang,
		}, nil
	}
	if res.Language == "" {
		res.Language = lang
	}
	return res, nil
}

// whisper can only translate into English
func englishOutput(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang == "english" || lang == "en"
}

func parseVerboseJSON(raw string) (*Result, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	var resp whisperVerboseResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	res := &Result{Language: resp.Language, Duration: seconds(resp.Duration)}
	res.Segments = toSegments(resp.Segments)
	if len(res.Segments) > 0 {
		return res, nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("no segments or text in response")
	}
	res.Segments = []subtitle.Segment{{EndTime: res.Duration, Text: text}}
	return res, nil
}
