package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"storyboard/internal/infra"
	"storyboard/internal/infra/credentials"
)

func main() {
	var (
		tokenFlag    string
		providerFlag string
		llmFlag      string
	)
	flag.StringVar(&tokenFlag, "token", "", "credential for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderVideoAuto, "provider to configure (videoauto, gemini or openai)")
	flag.StringVar(&llmFlag, "llm", "", "optionally set the active LLM backend (gemini or openai)")
	flag.Parse()

	_ = godotenv.Load()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	switch provider {
	case credentials.ProviderVideoAuto, credentials.ProviderGemini, credentials.ProviderOpenAI:
	case "":
		provider = credentials.ProviderVideoAuto
	default:
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	token := strings.TrimSpace(tokenFlag)
	if token == "" {
		switch provider {
		case credentials.ProviderGemini:
			token = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		case credentials.ProviderOpenAI:
			token = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			token = strings.TrimSpace(os.Getenv("VIDEOAUTO_TOKEN"))
		}
	}
	if token == "" && llmFlag == "" {
		fmt.Fprintf(os.Stderr, "%s credential is required via -token or environment\n", strings.ToUpper(provider))
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tokens").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()

	if token != "" {
		var persistErr error
		switch provider {
		case credentials.ProviderGemini:
			persistErr = store.SetGeminiAPIKey(ctxExec, token)
		case credentials.ProviderOpenAI:
			persistErr = store.SetOpenAIAPIKey(ctxExec, token)
		default:
			persistErr = store.SetVideoAutoToken(ctxExec, token)
		}
		if persistErr != nil {
			fmt.Fprintf(os.Stderr, "failed to persist %s credential: %v\n", provider, persistErr)
			os.Exit(1)
		}
		fmt.Printf("%s credential stored successfully\n", strings.ToUpper(provider))
	}

	if llmFlag != "" {
		if err := store.SetLLMProvider(ctxExec, llmFlag); err != nil {
			fmt.Fprintf(os.Stderr, "failed to set llm provider: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("LLM provider set to %s\n", strings.ToLower(strings.TrimSpace(llmFlag)))
	}
}
