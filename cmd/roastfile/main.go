package main

// Roast a resume file from disk without the HTTP layer:
//   go run ./cmd/roastfile -resume ./cv.pdf
//   go run ./cmd/roastfile -resume ./cv.txt -extract-only

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"roast-backend/internal/extract"
	"roast-backend/internal/llm/provider"
	"roast-backend/internal/roast"
	"roast-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf, docx, doc or txt)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	providerName := flag.String("provider", cfg.LLMProvider, "LLM provider (gateway, openai, anthropic, vertex)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	extractOnly := flag.Bool("extract-only", false, "Print extracted text and exit")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	fileName := filepath.Base(*resumePath)
	ctx := context.Background()

	if *extractOnly {
		text, err := extract.ExtractText(ctx, resumeBytes, "", fileName)
		if err != nil {
			exitErr(fmt.Sprintf("extract resume text: %v", err))
		}
		fmt.Println(text)
		return
	}

	name, ok := config.ParseProvider(*providerName)
	if !ok {
		exitErr(fmt.Sprintf("unknown provider %q (gateway, openai, anthropic, vertex)", *providerName))
	}
	cfg.LLMProvider = name
	cfg.LLMModel = *model
	client, err := provider.New(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("llm client: %v", err))
	}

	svc := &roast.Service{
		LLM: client,
		Sampling: roast.Sampling{
			Temperature:     cfg.LLMTemperature,
			TopP:            cfg.LLMTopP,
			TopK:            cfg.LLMTopK,
			MaxOutputTokens: cfg.LLMMaxTokens,
		},
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
	}
	out, err := svc.RoastDocument(ctx, "cli", fileName, "", resumeBytes)
	if err != nil {
		exitErr(fmt.Sprintf("roast: %v", err))
	}

	pretty, err := prettyJSON(map[string]any{
		"roasts":    out.Items,
		"degraded":  out.Degraded,
		"truncated": out.Truncated,
	})
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func prettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
