package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// single text to translate; Index ties the result back to its caption
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type Result struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// interface for text translation
type Translator interface {
	Translate(ctx context.Context, items []Item) ([]Result, error)
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported translation provider %q: use gemini, openai or anthropic", s)
	}
}

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request
	Concurrency    int // batches in flight
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if opts.InputLanguage != "" && strings.EqualFold(
		strings.TrimSpace(opts.InputLanguage),
		strings.TrimSpace(opts.TargetLanguage),
	) {
		return nil, fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			opts.InputLanguage,
			opts.TargetLanguage,
		)
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		fmt.Fprintf(&sb, "Translate the following %s caption texts to %s.\n\n",
			opts.InputLanguage, opts.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate the following caption texts to %s.\n\n", opts.TargetLanguage)
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text content, preserving the meaning.\n")
	sb.WriteString("2. Keep any formatting tags (like {\\pos}, {\\an}, etc.) unchanged.\n")
	sb.WriteString("3. Preserve line breaks in the same positions.\n")
	sb.WriteString("4. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("5. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("6. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("7. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", opts.Prompt)
	}

	sb.WriteString("Input JSON:\n")
	input, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(input)
	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}

type batchFunc func(ctx context.Context, items []Item) ([]Result, error)

// runBatches splits items into batches of size and sends up to concurrency
// of them at once. Results come back sorted by index; the first failing
// batch cancels the rest.
func runBatches(
	ctx context.Context,
	items []Item,
	size, concurrency int,
	fn batchFunc,
) ([]Result, error) {
	if len(items) == 0 {
		return []Result{}, nil
	}

	var batches [][]Item
	for i := 0; i < len(items); i += size {
		batches = append(batches, items[i:min(i+size, len(items))])
	}
	if len(batches) == 1 {
		return fn(ctx, batches[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		all      []Result
		firstErr error
		wg       sync.WaitGroup
	)
	work := make(chan int)

	for range min(concurrency, len(batches)) {
		wg.Go(func() {
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				results, err := fn(ctx, batches[idx])

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("batch %d failed: %w", idx, err)
					}
					cancel()
				} else {
					all = append(all, results...)
				}
				mu.Unlock()
			}
		})
	}

feed:
	for i := range batches {
		select {
		case <-ctx.Done():
			break feed
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b Result) int { return a.Index - b.Index })
	return all, nil
}
