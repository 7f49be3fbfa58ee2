// Command goforecast analyses, models and evaluates daily closing prices.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("goforecast failed")
		os.Exit(1)
	}
}
