package main

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/llm/claude"
	"github.com/m-mizutani/reagent/llm/gemini"
	"github.com/m-mizutani/reagent/llm/openai"
	"github.com/m-mizutani/reagent/llm/replay"
	"github.com/urfave/cli/v3"
)

const (
	providerOpenAI = "openai"
	providerAzure  = "azure"
	providerClaude = "claude"
	providerGemini = "gemini"
	providerReplay = "replay"
)

// completer is what every provider client implements.
type completer interface {
	reagent.Completer
	Model() string
}

type providerConfig struct {
	provider        string
	model           string
	apiKey          string
	azureEndpoint   string
	azureDeployment string
	gcpProject      string
	gcpLocation     string
	replayFile      string
}

func (c *providerConfig) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Aliases:     []string{"p"},
			Value:       providerOpenAI,
			Sources:     cli.EnvVars("REAGENT_PROVIDER"),
			Usage:       "Completion provider (openai, azure, claude, gemini, replay)",
			Destination: &c.provider,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Sources:     cli.EnvVars("REAGENT_MODEL"),
			Usage:       "Model name. Provider default if empty",
			Destination: &c.model,
		},
		&cli.StringFlag{
			Name:        "api-key",
			Sources:     cli.EnvVars("REAGENT_API_KEY"),
			Usage:       "API key of the provider",
			Destination: &c.apiKey,
		},
		&cli.StringFlag{
			Name:        "azure-endpoint",
			Sources:     cli.EnvVars("REAGENT_AZURE_ENDPOINT"),
			Usage:       "Azure OpenAI endpoint URL",
			Destination: &c.azureEndpoint,
		},
		&cli.StringFlag{
			Name:        "azure-deployment",
			Sources:     cli.EnvVars("REAGENT_AZURE_DEPLOYMENT"),
			Usage:       "Azure OpenAI deployment name",
			Destination: &c.azureDeployment,
		},
		&cli.StringFlag{
			Name:        "gcp-project",
			Sources:     cli.EnvVars("REAGENT_GCP_PROJECT"),
			Usage:       "Google Cloud project ID (gemini, or claude on Vertex AI)",
			Destination: &c.gcpProject,
		},
		&cli.StringFlag{
			Name:        "gcp-location",
			Value:       "us-central1",
			Sources:     cli.EnvVars("REAGENT_GCP_LOCATION"),
			Usage:       "Google Cloud location",
			Destination: &c.gcpLocation,
		},
		&cli.StringFlag{
			Name:        "replay-file",
			Sources:     cli.EnvVars("REAGENT_REPLAY_FILE"),
			Usage:       "YAML script for the replay provider",
			Destination: &c.replayFile,
		},
	}
}

func (c *providerConfig) newCompleter(ctx context.Context) (completer, error) {
	switch c.provider {
	case providerOpenAI:
		if c.apiKey == "" {
			return nil, goerr.New("--api-key is required for openai")
		}
		var options []openai.Option
		if c.model != "" {
			options = append(options, openai.WithModel(c.model))
		}
		return openai.New(ctx, c.apiKey, options...)

	case providerAzure:
		if c.apiKey == "" || c.azureEndpoint == "" || c.azureDeployment == "" {
			return nil, goerr.New("--api-key, --azure-endpoint and --azure-deployment are required for azure")
		}
		var options []openai.Option
		if c.model != "" {
			options = append(options, openai.WithModel(c.model))
		}
		return openai.NewAzure(ctx, c.apiKey, c.azureEndpoint, c.azureDeployment, options...)

	case providerClaude:
		var options []claude.Option
		if c.model != "" {
			options = append(options, claude.WithModel(c.model))
		}
		if c.gcpProject != "" {
			return claude.NewWithVertex(ctx, c.gcpLocation, c.gcpProject, options...)
		}
		if c.apiKey == "" {
			return nil, goerr.New("--api-key or --gcp-project is required for claude")
		}
		return claude.New(ctx, c.apiKey, options...)

	case providerGemini:
		var options []gemini.Option
		if c.model != "" {
			options = append(options, gemini.WithModel(c.model))
		}
		if c.gcpProject != "" {
			return gemini.New(ctx, c.gcpProject, c.gcpLocation, options...)
		}
		if c.apiKey == "" {
			return nil, goerr.New("--api-key or --gcp-project is required for gemini")
		}
		return gemini.NewWithAPIKey(ctx, c.apiKey, options...)

	case providerReplay:
		if c.replayFile == "" {
			return nil, goerr.New("--replay-file is required for replay")
		}
		return replay.Load(c.replayFile)

	default:
		return nil, goerr.New("unknown provider", goerr.V("provider", c.provider))
	}
}
