package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	conversationx "github.com/tanpawarit/Hospital-Care-Assistant/agent/conversation"
	hospitalx "github.com/tanpawarit/Hospital-Care-Assistant/agent/hospital"
	llmx "github.com/tanpawarit/Hospital-Care-Assistant/agent/llm"
	oraclex "github.com/tanpawarit/Hospital-Care-Assistant/agent/oracle"
	orchestratorx "github.com/tanpawarit/Hospital-Care-Assistant/agent/orchestrator"
	promptx "github.com/tanpawarit/Hospital-Care-Assistant/agent/prompt"
	toolx "github.com/tanpawarit/Hospital-Care-Assistant/agent/tool"
	apix "github.com/tanpawarit/Hospital-Care-Assistant/api"
	configx "github.com/tanpawarit/Hospital-Care-Assistant/pkg/config"
	databasex "github.com/tanpawarit/Hospital-Care-Assistant/pkg/database"
	_ "github.com/tanpawarit/Hospital-Care-Assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Hospital-Care-Assistant/pkg/openrouter"
)

type ConversationConfig struct {
	Backend string `envconfig:"BACKEND" default:"memory"`
}

func (c ConversationConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "memory", "upstash":
		return nil
	default:
		return fmt.Errorf("CONVERSATION_BACKEND must be memory or upstash, got %q", c.Backend)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("hospital assistant stopped")
	}
}

func run(ctx context.Context) error {
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	dbCfg := configx.MustNew[databasex.Config]("DATABASE")
	agentCfg := configx.MustNew[orchestratorx.Config]("AGENT")
	convCfg := configx.MustNew[ConversationConfig]("CONVERSATION")
	serverCfg := configx.MustNew[apix.Config]("SERVER")

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return err
	}

	db, err := databasex.Open(ctx, *dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo, err := hospitalx.NewRepository(db)
	if err != nil {
		return err
	}
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	if dbCfg.Seed {
		if err := repo.Seed(ctx); err != nil {
			return err
		}
	}

	store, err := newConversationStore(*convCfg)
	if err != nil {
		return err
	}

	providerCfg := llmCfg.OpenRouter()
	chatModel, err := openrouterx.NewChatModel(ctx, providerCfg)
	if err != nil {
		return err
	}
	client := openrouterx.NewClient(providerCfg)
	if client == nil {
		return errors.New("failed to initialize openrouter client")
	}
	advisor, err := openrouterx.NewTriageAdvisor(client, llmCfg.TriageModelName(), prompts.Triage,
		openrouterx.WithMaxTokens(llmCfg.TriageMaxTokens),
		openrouterx.WithTemperature(llmCfg.TriageTemperature),
	)
	if err != nil {
		return err
	}

	catalog, err := toolx.NewCatalog(repo, advisor)
	if err != nil {
		return err
	}
	oracle, err := oraclex.New(ctx, chatModel, catalog.Infos(), oraclex.WithMaxHistory(agentCfg.MaxHistory))
	if err != nil {
		return err
	}

	cfg := *agentCfg
	cfg.Preamble = prompts.Assistant
	orchestrator, err := orchestratorx.New(store, oracle, catalog, cfg)
	if err != nil {
		return err
	}

	srv := apix.NewServer(*serverCfg, apix.NewRouter(*serverCfg, orchestrator))
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverCfg.Addr).Str("model", providerCfg.Model).Msg("hospital assistant listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

func newConversationStore(cfg ConversationConfig) (conversationx.Store, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "upstash") {
		redisCfg := configx.MustNew[conversationx.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := conversationx.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("conversation store: upstash redis")
		return store, nil
	}
	return conversationx.NewMemoryStore(), nil
}
