package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// LLM
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.request_timeout", 30*time.Second)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.mode", "polling")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.max_concurrency", 4)
	viper.SetDefault("telegram.webhook_listen", ":8081")
	viper.SetDefault("telegram.webhook_secret", "")

	// Lead store
	viper.SetDefault("store.backend", "csv")
	viper.SetDefault("store.path", "leads.csv")
	viper.SetDefault("store.pro_path", "pro_requests.csv")
	viper.SetDefault("retention.days", 90)

	// Conversation
	viper.SetDefault("consent.token", "СОГЛАСЕН")
	viper.SetDefault("texts.path", "")
	viper.SetDefault("rate_limit.window", 2*time.Second)
	viper.SetDefault("rate_limit.max_idle", 1*time.Hour)

	// Privacy
	viper.SetDefault("hash.salt", "")

	// Operator
	viper.SetDefault("admin.chat_id", int64(0))
	viper.SetDefault("health.listen", ":8080")
}
