package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/entity"
	"github.com/joseph-ayodele/store-extractor/internal/pipeline"
)

type event = cloudevents.Event

type processor interface {
	Process(ctx context.Context, item entity.WorkItem) (pipeline.Outcome, error)
}

type worker struct {
	proc   processor
	logger *slog.Logger
}

func newWorker(proc processor, logger *slog.Logger) *worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &worker{proc: proc, logger: logger}
}

// pubsubEnvelope is the data of a google.cloud.pubsub.topic.v1.messagePublished
// event. Message.Data arrives base64-encoded and json decodes it into bytes.
type pubsubEnvelope struct {
	Message *struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
}

// decodeWorkItem accepts either a Pub/Sub envelope or a bare work item.
func decodeWorkItem(data []byte) (entity.WorkItem, error) {
	var env pubsubEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Message != nil && len(env.Message.Data) > 0 {
		data = env.Message.Data
	}
	var item entity.WorkItem
	if err := json.Unmarshal(data, &item); err != nil {
		return entity.WorkItem{}, common.NewAppError(common.KindMalformedWorkItem, "decode work item", err)
	}
	return item, nil
}

// handleEvent processes one delivered work item. Pipeline failures are
// recorded in the status store and acknowledged, so redelivery never
// reprocesses a finished item.
func (w *worker) handleEvent(ctx context.Context, e event) error {
	logger := w.logger.With("event_id", e.ID(), "event_type", e.Type())
	item, err := decodeWorkItem(e.Data())
	if err != nil {
		logger.Error("worker.event.undecodable", "error", err, "data", string(e.Data()))
		return nil
	}
	out, err := w.proc.Process(ctx, item)
	if err != nil {
		logger.Error("worker.event.failed", "upload_id", item.UploadID, "kind", common.KindOf(err), "error", err)
		return nil
	}
	logger.Info("worker.event.ok", "upload_id", out.UploadID, "status", out.Status, "method", out.Method)
	return nil
}

type successBody struct {
	Message         string `json:"message"`
	UploadID        string `json:"upload_id"`
	ExtractedFields int    `json:"extracted_fields"`
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  common.ErrorKind `json:"kind"`
}

func httpEntry(rw http.ResponseWriter, r *http.Request) {
	if err := setup(); err != nil {
		writeJSON(rw, http.StatusInternalServerError, errorBody{Error: "worker initialization failed", Kind: common.KindOf(err)})
		return
	}
	w.handleHTTP(rw, r)
}

func (w *worker) handleHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(rw, http.StatusMethodNotAllowed, errorBody{Error: "POST required", Kind: common.KindMalformedWorkItem})
		return
	}
	var item entity.WorkItem
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20)).Decode(&item); err != nil {
		writeJSON(rw, http.StatusBadRequest, errorBody{Error: "could not parse work item: " + err.Error(), Kind: common.KindMalformedWorkItem})
		return
	}

	out, err := w.proc.Process(r.Context(), item)
	if err != nil {
		kind := common.KindOf(err)
		w.logger.Error("worker.http.failed", "upload_id", item.UploadID, "kind", kind, "error", err)
		writeJSON(rw, statusFor(err), errorBody{Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(rw, http.StatusOK, successBody{
		Message:         "Extraction successful",
		UploadID:        out.UploadID,
		ExtractedFields: out.Fields,
	})
}

func statusFor(err error) int {
	if errors.Is(err, common.ErrValidation) || common.KindOf(err) == common.KindMalformedWorkItem {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
