package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	systemPrompt = "Ты — эксперт по запуску микробизнесов."

	userPromptTemplate = `💰 Бюджет: %s₽
🧠 Навыки и интересы: %s
⏱ Доступное время: %s

Сгенерируй 3 разные идеи микробизнеса, которые можно запустить за 7–14 дней.
Формат каждой идеи:
💡 Название
📋 Что это и зачем нужно (2–3 предложения)
🚀 3 шага запуска
💰 Как монетизировать`

	// FallbackIdeas is sent whenever the completion call fails or is
	// unavailable. Never empty: the user always gets something usable.
	FallbackIdeas = `Сервис идей сейчас недоступен, вот три универсальные идеи:

💡 Микроуслуги на фрилансе — упакуй один навык в фиксированную услугу с фиксированной ценой и продавай на биржах и в профильных чатах.
💡 Перепродажа локальных товаров — найди ходовой товар у оптовиков, продавай через Авито и соцсети с наценкой, без склада.
💡 Мини-консультации — часовые созвоны по теме, в которой ты разбираешься лучше большинства; расписание и оплата через бот или таблицу.`

	defaultTemperature = 0.9
	defaultMaxTokens   = 1000
)

// Generator builds the idea prompt from the collected answers and runs
// the completion call with a hard timeout. It never returns an empty
// string and never returns an error to callers: any failure degrades
// to FallbackIdeas.
type Generator struct {
	client  Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewGenerator(client Client, model string, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (g *Generator) Generate(ctx context.Context, budget, skills, timePerWeek string) string {
	if g.client == nil {
		g.logger.Debug("idea_generate_degraded", "reason", "no_llm_client")
		return FallbackIdeas
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.client.Chat(reqCtx, Request{
		Model: g.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf(userPromptTemplate, budget, skills, timePerWeek)},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		g.logger.Warn("idea_generate_error", "error", err.Error())
		return FallbackIdeas
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		g.logger.Warn("idea_generate_empty_response")
		return FallbackIdeas
	}
	g.logger.Debug("idea_generate_ok", "duration", res.Duration.String(), "chars", len(text))
	return text
}
