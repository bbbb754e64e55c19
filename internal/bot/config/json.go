package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/atelier/internal/flagx"
	"github.com/dmitrijs2005/atelier/internal/timex"
)

// JsonConfig is the DTO for the JSON overlay file. Durations use
// timex.Duration so the file can say "168h" instead of nanoseconds. Only
// fields present in the file override the defaults.
type JsonConfig struct {
	Token    string `json:"token"`
	ProxyURL string `json:"proxy_url"`
	DataDir  string `json:"data_dir"`

	GalleryChannelName string `json:"gallery_channel"`
	ChatChannelName    string `json:"chat_channel"`
	TriggerEmoji       string `json:"trigger_emoji"`
	ProcessedEmoji     string `json:"processed_emoji"`

	SpectatorRoleName string `json:"spectator_role"`
	CreatorRoleName   string `json:"creator_role"`
	StarRoleName      string `json:"star_role"`
	StarGrantKey      string `json:"star_grant_key"`

	DailyReward      int            `json:"daily_reward"`
	StarRoleCost     int            `json:"star_role_cost"`
	StarRoleDuration timex.Duration `json:"star_role_duration"`
	SweepInterval    timex.Duration `json:"sweep_interval"`

	LedgerFile      string `json:"ledger_file"`
	ThreadIndexFile string `json:"thread_index_file"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into config. Absent flags mean no overlay. An unreadable
// or invalid file panics: a deployment asking for an overlay it cannot have
// should not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Token, c.Token)
	setString(&config.ProxyURL, c.ProxyURL)
	setString(&config.DataDir, c.DataDir)
	setString(&config.GalleryChannelName, c.GalleryChannelName)
	setString(&config.ChatChannelName, c.ChatChannelName)
	setString(&config.TriggerEmoji, c.TriggerEmoji)
	setString(&config.ProcessedEmoji, c.ProcessedEmoji)
	setString(&config.SpectatorRoleName, c.SpectatorRoleName)
	setString(&config.CreatorRoleName, c.CreatorRoleName)
	setString(&config.StarRoleName, c.StarRoleName)
	setString(&config.StarGrantKey, c.StarGrantKey)
	setString(&config.LedgerFile, c.LedgerFile)
	setString(&config.ThreadIndexFile, c.ThreadIndexFile)

	if c.DailyReward != 0 {
		config.DailyReward = c.DailyReward
	}
	if c.StarRoleCost != 0 {
		config.StarRoleCost = c.StarRoleCost
	}
	setDuration(&config.StarRoleDuration, c.StarRoleDuration)
	setDuration(&config.SweepInterval, c.SweepInterval)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
