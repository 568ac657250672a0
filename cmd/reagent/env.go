package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
)

const defaultEnvFile = ".env"

// loadEnvFile loads the file named by REAGENT_ENV_FILE, or ./.env if it exists. It runs before
// flag parsing so that the loaded variables feed the REAGENT_* flag sources. Variables already
// set in the environment win.
func loadEnvFile() error {
	path := os.Getenv("REAGENT_ENV_FILE")
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		return goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
	}
	return nil
}
