// Package app wires configuration into a ready-to-serve handler. Both the
// HTTP server and the Lambda entry point build through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jackc/pgx/v5/pgxpool"

	"asic-advisor/handler"
	"asic-advisor/internal/config"
	"asic-advisor/internal/integrations/openai"
	"asic-advisor/internal/integrations/paramstore"
	"asic-advisor/internal/repository"
	"asic-advisor/internal/tools"
	"asic-advisor/internal/usecase"
)

// App holds the wired handler and the resources to release on shutdown.
type App struct {
	Handler *handler.Handler
	closers []func()
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewLogger returns a JSON slog logger writing to stdout at level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New resolves secrets, validates cfg and builds every component.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	if cfg.NeedsParamStore() {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		ps, err := paramstore.New(awsssm.NewFromConfig(ac))
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveAPIKey(ctx, ps); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}
	seller, buyer, err := a.sources(ctx, cfg, backend, loadAWS)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("dataset sources ready", "backend", backend)

	h, err := buildHandler(cfg, seller, buyer, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = h
	return a, nil
}

func (a *App) sources(ctx context.Context, cfg *config.Config, backend repository.Backend, loadAWS func() (aws.Config, error)) (repository.Source, repository.Source, error) {
	switch backend {
	case repository.BackendDynamoDB:
		ac, err := loadAWS()
		if err != nil {
			return nil, nil, err
		}
		client := awsdynamodb.NewFromConfig(ac)
		s, err := repository.NewDynamoSource(client, cfg.Data.Seller.Table)
		if err != nil {
			return nil, nil, err
		}
		b, err := repository.NewDynamoSource(client, cfg.Data.Buyer.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, b, nil

	case repository.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Data.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open postgres pool: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		s, err := repository.NewPostgresSource(pool, cfg.Data.Seller.Table)
		if err != nil {
			return nil, nil, err
		}
		b, err := repository.NewPostgresSource(pool, cfg.Data.Buyer.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, b, nil

	default:
		s, err := fileSource(cfg.Data.Seller)
		if err != nil {
			return nil, nil, err
		}
		b, err := fileSource(cfg.Data.Buyer)
		if err != nil {
			return nil, nil, err
		}
		return s, b, nil
	}
}

func fileSource(ds config.Dataset) (*repository.FileSource, error) {
	format, err := repository.ParseFormat(ds.Format)
	if err != nil {
		return nil, err
	}
	return repository.NewFileSource(ds.Path, format)
}

func buildHandler(cfg *config.Config, seller, buyer repository.Source, logger *slog.Logger) (*handler.Handler, error) {
	sellerTool, err := tools.NewSellerTool(seller)
	if err != nil {
		return nil, err
	}
	buyerTool, err := tools.NewBuyerTool(buyer)
	if err != nil {
		return nil, err
	}
	toolkit, err := tools.NewAdvisorToolkit(sellerTool, buyerTool)
	if err != nil {
		return nil, err
	}

	llm, err := openai.NewClient(cfg.LLM.APIKey,
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
	)
	if err != nil {
		return nil, err
	}

	agent, err := usecase.NewAgent(llm, toolkit, cfg.LLM.Model,
		usecase.WithTemperature(cfg.LLM.Temperature),
		usecase.WithMaxToolRounds(cfg.LLM.MaxToolRounds),
		usecase.WithAgentLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	wf, err := usecase.NewAdvisorWorkflow(agent, logger)
	if err != nil {
		return nil, err
	}
	ask, err := usecase.NewAskService(wf, logger)
	if err != nil {
		return nil, err
	}
	listings, err := usecase.NewListingsService(seller)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(ask, listings, logger)
}
