package service

import (
	"context"
	"fmt"
	"strings"

	"compliancedesk-backend/llm"
	"compliancedesk-backend/logger"
)

const (
	maxSuggestions  = 3
	maxHistoryTurns = 20
	chatTemperature = 0.7
)

const chatSystemPrompt = `You are a helpful compliance assistant for Indian small and medium businesses.
You answer questions about GST, TDS, contract terms, data protection (DPDP Act, 2023) and statutory filing deadlines.
Keep answers practical and concise, cite the relevant Act or section where you can,
and recommend consulting a chartered accountant or lawyer for decisions with legal consequences.`

type suggestionRule struct {
	keywords    []string
	suggestions []string
}

var suggestionRules = []suggestionRule{
	{
		keywords: []string{"gst"},
		suggestions: []string{
			"What are the GST return filing due dates?",
			"How do I claim input tax credit?",
			"When is GST registration mandatory?",
		},
	},
	{
		keywords: []string{"tds"},
		suggestions: []string{
			"What are the TDS rates for professional services?",
			"When is the TDS return due?",
			"What is the penalty for late TDS deposit?",
		},
	},
	{
		keywords: []string{"contract", "agreement"},
		suggestions: []string{
			"Which clauses should every vendor contract include?",
			"How do I review an indemnity clause?",
			"Is stamp duty required for this agreement?",
		},
	},
	{
		keywords: []string{"data", "privacy"},
		suggestions: []string{
			"What does the DPDP Act require from my business?",
			"Do I need a data processing agreement with vendors?",
			"How should I report a personal data breach?",
		},
	},
	{
		keywords: []string{"filing", "deadline", "due date"},
		suggestions: []string{
			"Show the compliance calendar for this month",
			"What happens if I miss a filing deadline?",
			"Which filings are due this quarter?",
		},
	},
}

var defaultSuggestions = []string{
	"How do I check GST compliance for a contract?",
	"What TDS applies to vendor payments?",
	"What are the key compliance deadlines this month?",
}

// Suggestions derives up to three follow-up questions from the keywords in a question
func Suggestions(question string) []string {
	lower := strings.ToLower(question)
	seen := make(map[string]bool)
	out := make([]string, 0, maxSuggestions)

	for _, rule := range suggestionRules {
		if !containsAnyKeyword(lower, rule.keywords) {
			continue
		}
		for _, s := range rule.suggestions {
			if len(out) == maxSuggestions {
				return out
			}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	if len(out) == 0 {
		return append(out, defaultSuggestions...)
	}
	return out
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// ChatService proxies compliance questions to the model
type ChatService struct {
	client llm.Client
	log    *logger.Logger
}

// NewChatService creates a new chat service
func NewChatService(client llm.Client, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{client: client, log: log}
}

// ChatRequest is one user question with prior conversation turns
type ChatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

// ChatResponse is the model reply plus follow-up suggestions
type ChatResponse struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
}

// Ask sends the question with its history and returns the answer
func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	reply, err := s.client.Generate(ctx, llm.Request{
		System:      chatSystemPrompt,
		History:     history,
		Prompt:      message,
		Temperature: chatTemperature,
	})
	if err != nil {
		s.log.Error("chat.generate_failed", "error", err)
		return nil, fmt.Errorf("chat request: %w", err)
	}

	return &ChatResponse{
		Reply:       strings.TrimSpace(reply),
		Suggestions: Suggestions(message),
	}, nil
}
