package translate

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFactoryReturnsTranslators(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		provider Provider
		check    func(Translator) bool
	}{
		{ProviderGemini, func(tr Translator) bool { _, ok := tr.(*GeminiTranslator); return ok }},
		{ProviderOpenAI, func(tr Translator) bool { _, ok := tr.(*OpenAITranslator); return ok }},
		{ProviderAnthropic, func(tr Translator) bool { _, ok := tr.(*AnthropicTranslator); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			tr, err := Factory(ctx, tt.provider, "fake-key", Options{TargetLanguage: "Japanese"})
			if err != nil {
				t.Fatalf("Factory(%s) returned error: %v", tt.provider, err)
			}
			if !tt.check(tr) {
				t.Errorf("unexpected translator type %T", tr)
			}
		})
	}
}

func TestFactoryErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		provider Provider
		key      string
		opts     Options
	}{
		{"missing target", ProviderGemini, "k", Options{}},
		{"same languages", ProviderGemini, "k", Options{InputLanguage: "French", TargetLanguage: " french"}},
		{"unknown provider", Provider("unknown"), "k", Options{TargetLanguage: "French"}},
		{"missing key", ProviderOpenAI, "", Options{TargetLanguage: "French"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Factory(ctx, tt.provider, tt.key, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseProvider(t *testing.T) {
	if p, err := ParseProvider("Anthropic"); err != nil || p != ProviderAnthropic {
		t.Errorf("ParseProvider(Anthropic) = %q, %v", p, err)
	}
	if _, err := ParseProvider("deepl"); err == nil {
		t.Error("expected error")
	}
}

func TestValidateModel(t *testing.T) {
	if err := ValidateModel(ProviderGemini, ""); err != nil {
		t.Errorf("empty model should pass: %v", err)
	}
	if err := ValidateModel(ProviderOpenAI, "gpt-5-mini"); err != nil {
		t.Errorf("known model rejected: %v", err)
	}
	if err := ValidateModel(ProviderGemini, "gpt-5"); err == nil {
		t.Error("expected error for cross-provider model")
	}
}

func upper(ctx context.Context, items []Item) ([]Result, error) {
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = Result{Index: it.Index, Text: strings.ToUpper(it.Text)}
	}
	return out, nil
}

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Index: i, Text: string(rune('a' + i%26))}
	}
	return items
}

func TestRunBatchesSortedResults(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, items []Item) ([]Result, error) {
		calls.Add(1)
		return upper(ctx, items)
	}

	results, err := runBatches(context.Background(), makeItems(25), 4, 3, fn)
	if err != nil {
		t.Fatalf("runBatches: %v", err)
	}
	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has index %d", i, r.Index)
		}
	}
	if results[1].Text != "B" {
		t.Errorf("result 1 = %q", results[1].Text)
	}
	if got := calls.Load(); got != 7 {
		t.Errorf("expected 7 batches, got %d", got)
	}
}

func TestRunBatchesFailure(t *testing.T) {
	fn := func(ctx context.Context, items []Item) ([]Result, error) {
		if items[0].Index == 4 {
			return nil, errors.New("quota")
		}
		return upper(ctx, items)
	}

	if _, err := runBatches(context.Background(), makeItems(12), 4, 2, fn); err == nil {
		t.Error("expected error")
	}
}

func TestRunBatchesEmpty(t *testing.T) {
	results, err := runBatches(context.Background(), nil, 4, 2, upper)
	if err != nil || len(results) != 0 {
		t.Errorf("got %v, %v", results, err)
	}
}

func TestOpenAITranslatorIntegration(t *testing.T) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	tr, err := NewOpenAITranslator(context.Background(), key, Options{TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator: %v", err)
	}
	results, err := tr.Translate(context.Background(), []Item{{Index: 0, Text: "Hello"}})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(results) != 1 || results[0].Text == "" {
		t.Errorf("unexpected results %+v", results)
	}
}
