// Package config handles configuration for the bot: defaults, an optional
// JSON overlay, and command-line flags, applied in that order.
package config

import (
	"os"
	"time"
)

// Config holds the bot's runtime settings.
//
// Fields:
//   - Token: platform bot token ("Bot xxx" prefix is added by the gateway).
//   - ProxyURL: optional HTTP proxy for all platform traffic.
//   - DataDir: directory holding the persisted JSON documents.
//   - GalleryChannelName: forum channel receiving curated works.
//   - ChatChannelName: text channel for farewell notices.
//   - TriggerEmoji / ProcessedEmoji: curation trigger and processed marker.
//   - SpectatorRoleName / CreatorRoleName: the member tier roles.
//   - StarRoleName / StarGrantKey: the purchasable weekly role and its
//     ledger grant key.
//   - DailyReward / StarRoleCost: clay amounts.
//   - StarRoleDuration: validity of a purchased star role.
//   - SweepInterval: period of the expiry sweeper.
//   - LedgerFile / ThreadIndexFile: document names inside DataDir.
type Config struct {
	Token    string
	ProxyURL string
	DataDir  string

	GalleryChannelName string
	ChatChannelName    string
	TriggerEmoji       string
	ProcessedEmoji     string

	SpectatorRoleName string
	CreatorRoleName   string
	StarRoleName      string
	StarGrantKey      string

	DailyReward      int
	StarRoleCost     int
	StarRoleDuration time.Duration
	SweepInterval    time.Duration

	LedgerFile      string
	ThreadIndexFile string
}

// LoadDefaults populates Config with the stock community setup. Token and
// proxy come from the environment, matching how the bot has always been
// deployed.
func (c *Config) LoadDefaults() {
	c.Token = os.Getenv("DISCORD_TOKEN")
	c.ProxyURL = os.Getenv("HTTP_PROXY")
	c.DataDir = "data"
	c.GalleryChannelName = "gallery"
	c.ChatChannelName = "general"
	c.TriggerEmoji = "👍"
	c.ProcessedEmoji = "✅"
	c.SpectatorRoleName = "Spectator"
	c.CreatorRoleName = "Creator"
	c.StarRoleName = "Star of the Week"
	c.StarGrantKey = "star_of_the_week"
	c.DailyReward = 10
	c.StarRoleCost = 10
	c.StarRoleDuration = 7 * 24 * time.Hour
	c.SweepInterval = time.Hour
	c.LedgerFile = "currency_data.json"
	c.ThreadIndexFile = "author_threads.json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
