package analyst

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGen struct {
	text   string
	err    error
	model  string
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, model, prompt string) (string, error) {
	f.model, f.prompt = model, prompt
	return f.text, f.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAnalyzeMissingKey(t *testing.T) {
	a := New(nil, "", quiet())
	assert.False(t, a.Available())
	assert.Equal(t, MsgMissingKey, a.Analyze(context.Background(), "Q?", 0.4))
}

func TestAnalyzePaths(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGen
		want string
	}{
		{"ok", &fakeGen{text: "  Priced low. Risk is regulation.\n"}, "Priced low. Risk is regulation."},
		{"empty", &fakeGen{text: "   "}, MsgEmpty},
		{"error", &fakeGen{err: errors.New("quota")}, MsgUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.gen, "", quiet())
			assert.Equal(t, tt.want, a.Analyze(context.Background(), "Will ETH flip?", 0.425))
			assert.Equal(t, DefaultModel, tt.gen.model)
			assert.Contains(t, tt.gen.prompt, `"Will ETH flip?"`)
		})
	}
}

func TestPromptRoundsProbability(t *testing.T) {
	assert.Contains(t, Prompt("q", 0.426), "YES is 43%.")
	assert.Contains(t, Prompt("q", 0.07), "YES is 7%.")
}

func TestNewGenAIEmptyKey(t *testing.T) {
	g, err := NewGenAI(context.Background(), " ")
	require.NoError(t, err)
	assert.Nil(t, g)
}
