package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/observability/metrics"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// ErrNoProvider is returned when no LLM backend is configured.
var ErrNoProvider = errors.New("chat: no llm provider configured")

// ErrEmptyMessage is returned for blank user input.
var ErrEmptyMessage = errors.New("chat: message cannot be empty")

// historyLimit caps how many prior turns are replayed to the model.
const historyLimit = 30

const systemPrompt = `Eres el asistente virtual de Laboratorio Diagnóstica, un laboratorio clínico en Maracay, Venezuela.
Respondes en español, de forma breve y cordial.
Puedes orientar sobre los servicios del laboratorio, preparación para exámenes (ayuno, toma de muestras), horarios de atención (lunes a sábado de 7:00 am a 5:00 pm) y cómo agendar una cita o consultar resultados en el portal de pacientes.
No das diagnósticos ni interpretas resultados; para eso remites al médico tratante.
Si no sabes algo, lo dices y sugieres contactar al laboratorio directamente.`

// Historian persists conversation transcripts.
type Historian interface {
	Save(ctx context.Context, conversationID string, history []Message) error
	Load(ctx context.Context, conversationID string) ([]Message, error)
}

// Recorder writes audit events.
type Recorder interface {
	Record(eventType audit.EventType, actor, subject string, details any)
}

// ServiceConfig tunes the assistant.
type ServiceConfig struct {
	BedrockModelID string
	MaxTokens      int32
	Temperature    float32
}

// Reply is what the assistant returns for one user message.
type Reply struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Service routes user messages to the primary provider, falling back
// to the secondary when the primary fails.
type Service struct {
	primary  LLMClient
	fallback LLMClient
	history  Historian
	auditor  Recorder
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger
	cfg      ServiceConfig
}

// NewService wires the assistant. Either provider may be nil; history
// may be nil, in which case each message stands alone.
func NewService(primary, fallback LLMClient, history Historian, auditor Recorder, m *metrics.ChatMetrics, cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		history:  history,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// Send processes one user message and returns the assistant reply.
// An empty conversationID starts a new conversation.
func (s *Service) Send(ctx context.Context, conversationID, userMessage, remoteIP string) (*Reply, error) {
	if s.primary == nil && s.fallback == nil {
		return nil, ErrNoProvider
	}
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	history := s.loadHistory(ctx, conversationID)
	history = append(history, Message{Role: RoleUser, Content: userMessage})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	req := LLMRequest{
		Model:       s.cfg.BedrockModelID,
		System:      []string{systemPrompt},
		Messages:    history,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, provider, err := s.complete(ctx, req)
	if err != nil {
		s.metrics.Observe(provider, "error")
		return nil, fmt.Errorf("chat: completion failed: %w", err)
	}
	s.metrics.Observe(provider, "ok")

	history = append(history, Message{Role: RoleAssistant, Content: resp.Text})
	if s.history != nil {
		if err := s.history.Save(ctx, conversationID, history); err != nil {
			s.logger.Error("chat history save failed", "error", err, "conversation_id", conversationID)
		}
	}

	if s.auditor != nil {
		s.auditor.Record(audit.EventChatMessage, remoteIP, conversationID, map[string]any{
			"provider":      provider,
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		})
	}

	return &Reply{ConversationID: conversationID, Message: resp.Text}, nil
}

func (s *Service) loadHistory(ctx context.Context, conversationID string) []Message {
	if s.history == nil {
		return nil
	}
	history, err := s.history.Load(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, ErrUnknownConversation) {
			s.logger.Error("chat history load failed", "error", err, "conversation_id", conversationID)
		}
		return nil
	}
	return history
}

func (s *Service) complete(ctx context.Context, req LLMRequest) (LLMResponse, string, error) {
	if s.primary != nil {
		resp, err := s.primary.Complete(ctx, req)
		if err == nil {
			return resp, "bedrock", nil
		}
		s.logger.Error("primary llm provider failed", "error", err)
		if s.fallback == nil {
			return LLMResponse{}, "bedrock", err
		}
	}

	resp, err := s.fallback.Complete(ctx, req)
	if err != nil {
		return LLMResponse{}, "gemini", err
	}
	return resp, "gemini", nil
}
