package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
)

// ErrEmptyReply is returned when the model answers with no usable text.
var ErrEmptyReply = errors.New("generator: empty reply")

const systemPrompt = "You are a helpful WhatsApp assistant. You should respond to user messages " +
	"in a friendly, helpful manner.\nKeep your responses concise and relevant to the user's query."

// GeminiGenerator produces replies with a Gemini model seeded with the
// conversation history.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(0.7)

	return &GeminiGenerator{client: client, model: m}, nil
}

// Generate builds a prompt from the conversation history and asks the
// model for a reply. history must be chronological (oldest first) and
// include the latest user message; userNumber identifies which side of
// the conversation is the user.
func (g *GeminiGenerator) Generate(ctx context.Context, userNumber string, history []model.Record) (string, error) {
	prompt := buildPrompt(userNumber, history)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if reply == "" {
		return "", ErrEmptyReply
	}

	slog.Info("reply generated", "number", userNumber, "history_len", len(history), "reply_len", len(reply))
	return reply, nil
}

func (g *GeminiGenerator) Close() {
	if g.client != nil {
		_ = g.client.Close()
	}
}

func buildPrompt(userNumber string, history []model.Record) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nConversation History:\n")
	b.WriteString(formatHistory(userNumber, history))
	b.WriteString("\n\nPlease respond as a helpful WhatsApp assistant:")
	return b.String()
}

func formatHistory(userNumber string, history []model.Record) string {
	var lines []string
	for _, rec := range history {
		if rec.Body == "" {
			continue
		}
		role := "Assistant"
		if rec.From == userNumber {
			role = "User"
		}
		lines = append(lines, role+": "+rec.Body)
	}
	if len(lines) == 0 {
		return "No previous conversation history."
	}
	return strings.Join(lines, "\n")
}
