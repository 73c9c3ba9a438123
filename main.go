package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	actionsx "github.com/Khinkawu/crms6it-sub002/agent/actions"
	dispatchx "github.com/Khinkawu/crms6it-sub002/agent/dispatch"
	extractx "github.com/Khinkawu/crms6it-sub002/agent/extract"
	"github.com/Khinkawu/crms6it-sub002/agent/identity"
	llmx "github.com/Khinkawu/crms6it-sub002/agent/llm"
	phrasex "github.com/Khinkawu/crms6it-sub002/agent/phrase"
	promptx "github.com/Khinkawu/crms6it-sub002/agent/prompt"
	registryx "github.com/Khinkawu/crms6it-sub002/agent/registry"
	configx "github.com/Khinkawu/crms6it-sub002/pkg/config"
	linex "github.com/Khinkawu/crms6it-sub002/pkg/line"
	_ "github.com/Khinkawu/crms6it-sub002/pkg/logger/autoload"
	"github.com/Khinkawu/crms6it-sub002/server"
	storex "github.com/Khinkawu/crms6it-sub002/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	pg, err := storex.New(*configx.MustNew[storex.Config]("POSTGRES"))
	if err != nil {
		log.Fatal().Err(err).Msg("open postgres store")
	}
	defer pg.Close()

	reg := registryx.New()
	if err := actionsx.RegisterAll(reg, pg, time.Now); err != nil {
		log.Fatal().Err(err).Msg("register actions")
	}

	prompts := promptx.LoadPromptSet()

	extractorCfg := llmCfg.OpenRouterFor(llmx.RoleExtractor)
	extractorModel, err := extractorCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create extractor model")
	}
	extractor, err := extractx.New(ctx, extractorModel, reg, prompts.Extractor)
	if err != nil {
		log.Fatal().Err(err).Msg("create extractor")
	}

	phraserCfg := llmCfg.OpenRouterFor(llmx.RolePhraser)
	phraserModel, err := phraserCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create phraser model")
	}
	phraser, err := phrasex.New(ctx, phraserModel, prompts.Phrase)
	if err != nil {
		log.Fatal().Err(err).Msg("create phraser")
	}

	dispatcher, err := dispatchx.New(
		extractor,
		reg,
		*configx.MustNew[dispatchx.Config]("DISPATCH"),
		dispatchx.WithPhraser(phraser),
		dispatchx.WithLogger(log.Logger),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create dispatcher")
	}

	bindings, err := identity.NewUpstashRedisStore(*configx.MustNew[identity.UpstashRedisConfig]("UPSTASH_REDIS"))
	if err != nil {
		log.Fatal().Err(err).Msg("create binding store")
	}

	lineClient := linex.MustNew(*configx.MustNew[linex.Config]("LINE"))

	srv, err := server.New(lineClient, dispatcher, bindings, *configx.MustNew[server.Config]("SERVER"))
	if err != nil {
		log.Fatal().Err(err).Msg("create webhook server")
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("webhook server stopped")
	}
}
