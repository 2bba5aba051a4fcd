package commentary

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/logger"
)

const systemPrompt = `You are a dry, seasoned trading-desk commentator for a simulated arena where
four bot agents trade fictional symbols. Given one settled trade, reply with a
single punchy remark about it, at most two sentences, plain text. Never give
financial advice, never mention being an AI, never use markdown.`

// Client produces optional color commentary on settled trades through an
// OpenAI-compatible endpoint. Display only; the simulation never depends on
// it.
type Client struct {
	client  *openai.Client
	model   string
	cfg     *config.Config
	enabled bool
	logger  *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	if !cfg.Commentary.Enabled {
		return &Client{enabled: false, logger: log}
	}

	ocfg := openai.DefaultConfig(cfg.Commentary.APIKey)
	ocfg.BaseURL = cfg.Commentary.BaseURL

	return &Client{
		client:  openai.NewClientWithConfig(ocfg),
		model:   cfg.Commentary.Model,
		cfg:     cfg,
		enabled: true,
		logger:  log,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// TradeColor asks the model for one remark about a settled trade.
func (c *Client) TradeColor(ctx context.Context, t ledger.Trade) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("commentary disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommentaryTimeout())
	defer cancel()

	user := fmt.Sprintf(
		"Agent %q closed a %s on %s: entry %.2f, exit %.2f, size %.2f, pnl %+.2f.",
		t.AgentID, t.Direction, t.Symbol, t.EntryPrice, t.ExitPrice, t.Size, t.RealizedPnL)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("commentary API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("commentary returned no choices")
	}

	remark := CleanRemark(resp.Choices[0].Message.Content)
	if remark == "" {
		return "", fmt.Errorf("commentary came back empty")
	}

	c.logger.Debug("commentary received", "agent", t.AgentID, "length", len(remark))
	return remark, nil
}
