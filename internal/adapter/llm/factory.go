package llm

import (
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/config"
)

// NewClient creates a Client from configuration.
// MODE=MOCK returns a MockClient; otherwise an OpenAIClient.
func NewClient(cfg *config.Config, log logrus.FieldLogger) Client {
	if cfg.IsMock() {
		log.Info("MODE=MOCK detected, using mock language model client")
		return NewMockClient()
	}
	return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
}
