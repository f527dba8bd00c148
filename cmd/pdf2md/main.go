// Command pdf2md converts a single PDF into Markdown from the command
// line: wire envconfig -> obslog -> obsmetrics -> a VLM provider (optionally
// circuit-breaker guarded) -> the pdf2md library.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/pdf2md/internal/breaker"
	"github.com/local/pdf2md/internal/envconfig"
	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obslog"
	"github.com/local/pdf2md/internal/obsmetrics"
	"github.com/local/pdf2md/internal/providers"

	redis "github.com/redis/go-redis/v9"
	"github.com/local/pdf2md"
)

func main() {
	_ = godotenv.Load()

	envCfg := envconfig.FromEnv()

	logger, err := obslog.Init(obslog.Options{
		Level:        envCfg.Logging.Level,
		Pretty:       envCfg.Logging.Pretty,
		File:         envCfg.Logging.File,
		MaxSizeMB:    envCfg.Logging.MaxSizeMB,
		MaxBackups:   envCfg.Logging.MaxBackups,
		MaxAgeDays:   envCfg.Logging.MaxAgeDays,
		Compress:     envCfg.Logging.Compress,
		SendToAxiom:  envCfg.Axiom.Send && envCfg.Axiom.APIKey != "",
		AxiomAPIKey:  envCfg.Axiom.APIKey,
		AxiomOrgID:   envCfg.Axiom.OrgID,
		AxiomDataset: envCfg.Axiom.Dataset,
		AxiomFlush:   envCfg.Axiom.FlushInterval,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init logging")
	}
	defer obslog.Close()

	var (
		input       = flag.String("input", "", "path, http(s):// URL, or s3://bucket/key of the PDF to convert")
		output      = flag.String("output", "", "path to write the assembled Markdown to (defaults to stdout)")
		pages       = flag.String("pages", "", "page selection: empty for all, \"N\", \"LO-HI\", or a comma-separated set")
		concurrency = flag.Int("concurrency", envCfg.Defaults.Concurrency, "max pages submitted to the VLM at once (ignored when -maintain-format)")
		maintain    = flag.Bool("maintain-format", false, "process pages sequentially, threading each page's output into the next as context")
		metadata    = flag.Bool("include-metadata", false, "prepend a YAML front-matter block with document metadata")
	)
	flag.Parse()

	if *input == "" {
		logger.Fatal().Msg("-input is required")
	}

	provider, err := buildProvider(envCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build VLM provider")
	}

	obsmetrics.Init()
	metricsSrv := &http.Server{Addr: envCfg.MetricsAddr, Handler: metricsMux()}
	go func() {
		logger.Info().Str("addr", envCfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	pageSel, err := parsePageSelection(*pages)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -pages")
	}

	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		ProviderName(envCfg.Providers.Engine, providerModelName(envCfg)).
		Logger(logger).
		DPI(envCfg.Defaults.DPI).
		MaxRenderedPixels(envCfg.Defaults.MaxRenderedPixels).
		Concurrency(*concurrency).
		Temperature(envCfg.Defaults.Temperature).
		MaxTokens(envCfg.Defaults.MaxTokens).
		MaxRetries(envCfg.Defaults.MaxRetries).
		RetryBackoffMS(envCfg.Defaults.RetryBackoffMS).
		Pages(pageSel).
		MaintainFormat(*maintain).
		IncludeMetadata(*metadata).
		DownloadTimeoutSecs(envCfg.Defaults.DownloadTimeoutSecs).
		APITimeoutSecs(envCfg.Defaults.APITimeoutSecs).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid conversion config")
	}

	obsmetrics.ConversionStarted()
	start := time.Now()
	out, err := pdf2md.Convert(ctx, *input, cfg)
	obsmetrics.ConversionEnded()
	if err != nil {
		logger.Fatal().Err(err).Msg("conversion failed")
	}

	logger.Info().
		Str("correlation_id", out.Stats.CorrelationID).
		Int("pages_processed", out.Stats.ProcessedPages).
		Int("pages_failed", out.Stats.FailedPages).
		Int("pages_skipped", out.Stats.SkippedPages).
		Dur("elapsed", time.Since(start)).
		Msg("conversion complete")

	if *output == "" {
		fmt.Println(out.Markdown)
	} else if err := os.WriteFile(*output, []byte(out.Markdown), 0o644); err != nil {
		logger.Fatal().Err(err).Str("path", *output).Msg("failed to write output")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obsmetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

// buildProvider constructs the vendor client envCfg.Providers.Engine selects
// and, when REDIS_URL is configured, wraps it with a breaker shared across
// replicas. Instantiating a vendor client from credentials is this binary's
// job rather than the library's — see internal/providers.
func buildProvider(envCfg envconfig.Config, logger zerolog.Logger) (model.Provider, error) {
	var base model.Provider
	var modelName string

	switch envCfg.Providers.Engine {
	case "anthropic":
		if envCfg.Providers.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for engine %q", envCfg.Providers.Engine)
		}
		modelName = envCfg.Providers.AnthropicModel
		base = providers.NewAnthropic(envCfg.Providers.AnthropicAPIKey, modelName, envCfg.Providers.AnthropicBaseURL)
	case "openai", "":
		if envCfg.Providers.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for engine %q", envCfg.Providers.Engine)
		}
		modelName = envCfg.Providers.OpenAIModel
		base = providers.NewOpenAI(envCfg.Providers.OpenAIAPIKey, modelName, envCfg.Providers.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unknown engine %q (want openai or anthropic)", envCfg.Providers.Engine)
	}

	if envCfg.Breaker.RedisURL == "" {
		return base, nil
	}

	opt, err := redis.ParseURL(envCfg.Breaker.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, running without a shared circuit breaker")
		return base, nil
	}
	rc := redis.NewClient(opt)
	b := breaker.New(rc, envCfg.Breaker.BaseBackoff, envCfg.Breaker.MaxBackoff, logger)
	return providers.NewGuarded(base, b, modelName), nil
}

func providerModelName(envCfg envconfig.Config) string {
	if envCfg.Providers.Engine == "anthropic" {
		return envCfg.Providers.AnthropicModel
	}
	return envCfg.Providers.OpenAIModel
}

// parsePageSelection accepts the same shapes as model.PageSelection's tagged
// union: "" for all pages, "N" for a single page, "LO-HI" for an inclusive
// range, or a comma-separated list of page numbers for an explicit set.
func parsePageSelection(raw string) (model.PageSelection, error) {
	if raw == "" {
		return model.AllPages(), nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		lo, errLo := strconv.Atoi(strings.TrimSpace(parts[0]))
		hi, errHi := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errLo != nil || errHi != nil {
			return model.PageSelection{}, fmt.Errorf("invalid page range %q", raw)
		}
		return model.PageRangeSel(lo, hi), nil
	}
	if strings.Contains(raw, ",") {
		fields := strings.Split(raw, ",")
		set := make([]int, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return model.PageSelection{}, fmt.Errorf("invalid page set %q", raw)
			}
			set = append(set, n)
		}
		return model.PageSet(set), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return model.PageSelection{}, fmt.Errorf("invalid page selector %q", raw)
	}
	return model.SinglePage(n), nil
}
