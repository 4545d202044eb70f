// invoice-extract runs the extraction pipeline once against a local document
// and prints the result envelope as JSON. No database is involved.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
	"github.com/gwh-ap/invoice-agent/internal/llm"
	"github.com/gwh-ap/invoice-agent/internal/llm/openai"
	"github.com/gwh-ap/invoice-agent/internal/pipeline"
	"github.com/gwh-ap/invoice-agent/internal/registry"
)

// staticStore serves one template for every (country, brand, method) lookup,
// so the CLI works without a prompt registry behind it.
type staticStore struct {
	tpl entity.PromptTemplate
}

func (s *staticStore) GetPromptTemplate(_ context.Context, _, _, _ string) (*entity.PromptTemplate, error) {
	tpl := s.tpl
	return &tpl, nil
}

func (s *staticStore) GetBrandFeedback(context.Context, string, string) (*entity.BrandFeedback, error) {
	return nil, common.ErrNotFound
}

func main() {
	var (
		file     = flag.String("file", "", "invoice document (PDF or image), required")
		method   = flag.String("method", "text", "processing method: text or image")
		level    = flag.String("level", "page", "processing level: page or invoice")
		pages    = flag.String("pages", "all", `pages to process: "all", "first" or e.g. "1,3-5"`)
		maxPages = flag.Int("max-pages", 0, "max pages per invoice-level batch, 0 = unlimited")
		tplPath  = flag.String("template", "", "optional JSON file with schema_json/prompt/special_instructions")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: invoice-extract -file <document> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	tpl, err := loadTemplate(*tplPath)
	if err != nil {
		logger.Error("failed to load template", "path", *tplPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)

	resolver := registry.NewResolver(&staticStore{tpl: *tpl}, logger)
	pl := pipeline.New(extractor, resolver, cfg.Documents, pipeline.WithLogger(logger))

	request, err := json.Marshal(pipeline.Request{
		InvoicePath:        *file,
		ProcessingMethod:   *method,
		ProcessingLevel:    *level,
		Pages:              *pages,
		ProcessingMaxPages: *maxPages,
	})
	if err != nil {
		logger.Error("failed to build request", "error", err)
		os.Exit(1)
	}

	out := pl.Run(ctx, request)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
	if status, _ := out["status"].(string); status != "success" {
		os.Exit(1)
	}
}

// loadTemplate returns the built-in template, optionally overridden from a
// JSON file.
func loadTemplate(path string) (*entity.PromptTemplate, error) {
	schema, err := json.Marshal(llm.DefaultInvoiceJSONSchema())
	if err != nil {
		return nil, err
	}
	tpl := &entity.PromptTemplate{
		BrandName:  "default",
		SchemaJSON: schema,
		Prompt:     "Extract every header field and line item exactly as printed on the invoice.",
		IsActive:   true,
		Version:    1,
	}
	if path == "" {
		return tpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var override struct {
		SchemaJSON          json.RawMessage `json:"schema_json"`
		Prompt              string          `json:"prompt"`
		SpecialInstructions *string         `json:"special_instructions"`
	}
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	if len(override.SchemaJSON) > 0 {
		tpl.SchemaJSON = override.SchemaJSON
	}
	if override.Prompt != "" {
		tpl.Prompt = override.Prompt
	}
	tpl.SpecialInstructions = override.SpecialInstructions
	return tpl, nil
}
