package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviders_ProbeOrder(t *testing.T) {
	providers, closeFn := Providers(common.LLMConfig{MaxAttempts: 1}, quietLogger())
	defer closeFn()

	var names []string
	for _, p := range providers {
		names = append(names, p.Name())
		if p.Available() {
			t.Errorf("%s available without credentials", p.Name())
		}
	}
	if len(names) != 3 || names[0] != "gemini" || names[1] != "geminihttp" || names[2] != "openai" {
		t.Fatalf("order = %v", names)
	}
	if _, err := llm.SelectImage(providers); common.KindOf(err) != common.KindNoProviderAvailable {
		t.Fatalf("err = %v", err)
	}
}

func TestProviders_TextFallsPastImageOnly(t *testing.T) {
	providers, closeFn := Providers(common.LLMConfig{GeminiAPIKey: "g", OpenAIAPIKey: "o", MaxAttempts: 1}, quietLogger())
	defer closeFn()

	img, err := llm.SelectImage(providers)
	if err != nil || img.Name() != "geminihttp" {
		t.Fatalf("image provider = %v, %v", img, err)
	}
	txt, err := llm.SelectText(providers)
	if err != nil || txt.Name() != "openai" {
		t.Fatalf("text provider = %v, %v", txt, err)
	}
}

func TestProviders_CloudProjectAloneDoesNotEnableVertex(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-proj")
	t.Setenv("GEMINI_PROJECT_ID", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	providers, closeFn := Providers(common.LoadConfig().LLM, quietLogger())
	defer closeFn()

	img, err := llm.SelectImage(providers)
	if err != nil || img.Name() != "openai" {
		t.Fatalf("image provider = %v, %v", img, err)
	}
}

func TestOpenStores_SQLite(t *testing.T) {
	cfg := &common.Config{Store: common.StoreConfig{
		Backend:        "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "x.db"),
		UploadsTable:   "Uploads",
		ExtractedTable: "ExtractedData",
	}}
	st, err := OpenStores(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if st.Claimer == nil {
		t.Fatal("sqlite should claim")
	}
	if err := st.Uploads.UpdateStatus(context.Background(), "s", "u", constants.UploadStatusUploaded, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestOpenStores_Unknown(t *testing.T) {
	_, err := OpenStores(context.Background(), &common.Config{Store: common.StoreConfig{Backend: "dynamo"}}, quietLogger())
	if common.KindOf(err) != common.KindConfigError {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := OpenBlob(context.Background(), common.StorageConfig{Backend: "s3"}, quietLogger()); common.KindOf(err) != common.KindConfigError {
		t.Fatalf("blob err = %v", err)
	}
}
