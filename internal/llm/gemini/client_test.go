package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

type fakeModel struct {
	calls [][]genai.Part
	errs  []error
	text  string
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, parts)
	if i := len(f.calls) - 1; i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.text)}},
		}},
	}, nil
}

func newFakeClient(m *fakeModel) *Client {
	c := NewClient(Config{
		ProjectID: "p",
		Retry:     llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.model = m
	return c
}

func TestExtractFromImage(t *testing.T) {
	m := &fakeModel{text: "```json\n{\"supplier_name\":\"Acme\",\"items\":[]}\n```"}
	out, err := newFakeClient(m).ExtractFromImage(context.Background(), []byte{1, 2}, "Extract invoice.", "image/png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out["supplier_name"] != "Acme" {
		t.Fatalf("out = %v", out)
	}
	parts := m.calls[0]
	if txt := string(parts[0].(genai.Text)); !strings.HasSuffix(txt, llm.JSONInstruction) {
		t.Fatalf("prompt = %q", txt)
	}
	if blob := parts[1].(genai.Blob); blob.MIMEType != "image/png" || len(blob.Data) != 2 {
		t.Fatalf("blob = %+v", blob)
	}
}

func TestExtractFromText_RetriesUnavailable(t *testing.T) {
	m := &fakeModel{
		errs: []error{status.Error(codes.Unavailable, "try later"), status.Error(codes.ResourceExhausted, "quota")},
		text: `{"account_number":"1"}`,
	}
	out, err := newFakeClient(m).ExtractFromText(context.Background(), "stmt", "Extract.")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(m.calls) != 3 || out["account_number"] != "1" {
		t.Fatalf("calls = %d out = %v", len(m.calls), out)
	}
	if txt := string(m.calls[0][0].(genai.Text)); !strings.Contains(txt, "Input text:\nstmt") {
		t.Fatalf("prompt = %q", txt)
	}
}

func TestConnectRetriesAfterFailure(t *testing.T) {
	m := &fakeModel{text: `{"account_number":"7"}`}
	c := NewClient(Config{ProjectID: "p", Retry: llm.RetryPolicy{MaxAttempts: 1}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	dials := 0
	c.dial = func(context.Context) (*genai.Client, generator, error) {
		dials++
		if dials == 1 {
			return nil, nil, errors.New("metadata server unreachable")
		}
		return nil, m, nil
	}

	if _, err := c.ExtractFromText(context.Background(), "stmt", "Extract."); !common.IsKind(err, common.KindProviderError) {
		t.Fatalf("first call err = %v", err)
	}
	out, err := c.ExtractFromText(context.Background(), "stmt", "Extract.")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if out["account_number"] != "7" || dials != 2 {
		t.Fatalf("out = %v dials = %d", out, dials)
	}
	// a live client is reused
	if _, err := c.ExtractFromText(context.Background(), "stmt", "Extract."); err != nil || dials != 2 {
		t.Fatalf("third call err = %v dials = %d", err, dials)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want common.ErrorKind
	}{
		"unavailable": {status.Error(codes.Unavailable, "x"), common.KindTransientNetworkFailure},
		"deadline":    {context.DeadlineExceeded, common.KindTransientNetworkFailure},
		"denied":      {status.Error(codes.PermissionDenied, "x"), common.KindProviderError},
		"bad request": {status.Error(codes.InvalidArgument, "x"), common.KindProviderError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := common.KindOf(classify(tc.err)); got != tc.want {
				t.Fatalf("kind = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	if NewClient(Config{}, nil).Available() {
		t.Fatal("no project should be unavailable")
	}
	if !NewClient(Config{ProjectID: "p"}, nil).Available() {
		t.Fatal("project with default region should be available")
	}
}

func TestEmptyResponseIsUnparsable(t *testing.T) {
	if _, err := responseText(&genai.GenerateContentResponse{}); !common.IsKind(err, common.KindUnparsableResponse) {
		t.Fatalf("err = %v", err)
	}
}
