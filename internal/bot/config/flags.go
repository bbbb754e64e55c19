package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/atelier/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   bot token
//	-x string   HTTP proxy URL
//	-d string   data directory
//	-g string   gallery forum channel name
//	-i int      sweep interval, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so the -c/-config overlay flags pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-x", "-d", "-g", "-i"})

	fs := flag.NewFlagSet("bot", flag.ContinueOnError)

	fs.StringVar(&config.Token, "t", config.Token, "bot token")
	fs.StringVar(&config.ProxyURL, "x", config.ProxyURL, "HTTP proxy URL")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.GalleryChannelName, "g", config.GalleryChannelName, "gallery forum channel name")

	sweepInterval := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
