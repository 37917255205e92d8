package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wo-aiml-user/whatsapp-bot/internal/client"
	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
	"github.com/wo-aiml-user/whatsapp-bot/internal/service"
	"github.com/wo-aiml-user/whatsapp-bot/internal/store"
	"github.com/wo-aiml-user/whatsapp-bot/internal/webhook"
)

type Handler struct {
	svc         *service.Service
	store       store.MessageStore
	verifyToken string
}

func NewHandler(svc *service.Service, st store.MessageStore, verifyToken string) *Handler {
	return &Handler{svc: svc, store: st, verifyToken: verifyToken}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// VerifyWebhook answers the provider's subscription handshake: echo the
// challenge only when the mode and the shared token match.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ReceiveWebhook ingests a callback payload. Always answers 200 so the
// provider does not redeliver; per-message storage failures only lower
// the stored count.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhook.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("webhook: undecodable payload", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"received": 0, "stored": 0})
		return
	}

	records, statuses := webhook.Parse(payload)
	if statuses > 0 {
		slog.Info("webhook: status updates skipped", "count", statuses)
	}

	stored := 0
	for _, rec := range records {
		if err := h.svc.HandleInbound(r.Context(), rec); err != nil {
			slog.Error("webhook: inbound not stored", "number", rec.From, "id", rec.ID, "error", err)
			continue
		}
		stored++
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": len(records), "stored": stored})
}

type sendBody struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Number == "" || body.Text == "" {
		httpError(w, http.StatusBadRequest, "number and text are required")
		return
	}

	resp, err := h.svc.Send(r.Context(), body.Number, body.Text)
	if err != nil {
		slog.Error("send failed", "number", body.Number, "error", err)
		httpError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "response": resp})
}

type initiateBody struct {
	Number string `json:"number"`
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var body initiateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Number == "" {
		httpError(w, http.StatusBadRequest, "number is required")
		return
	}

	resp, err := h.svc.Initiate(r.Context(), body.Number)
	if err != nil {
		slog.Error("initiate failed", "number", body.Number, "error", err)
		httpError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "response": resp})
}

type bulkInitiateBody struct {
	Numbers []string `json:"numbers"`
}

func (h *Handler) InitiateBulk(w http.ResponseWriter, r *http.Request) {
	var body bulkInitiateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Numbers) == 0 {
		httpError(w, http.StatusBadRequest, "numbers is required")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.InitiateBulk(r.Context(), body.Numbers))
}

type getBody struct {
	Number string `json:"number"`
	Limit  int    `json:"limit"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	var body getBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Number == "" {
		httpError(w, http.StatusBadRequest, "number is required")
		return
	}
	if body.Limit < 0 {
		body.Limit = 0
	}

	recs, err := h.svc.Fetch(r.Context(), body.Number, body.Limit)
	if err != nil {
		slog.Error("fetch failed", "number", body.Number, "error", err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": len(recs), "messages": recs})
}

type bulkGetBody struct {
	Numbers []string `json:"numbers"`
	Limit   int      `json:"limit"`
}

func (h *Handler) GetBulk(w http.ResponseWriter, r *http.Request) {
	var body bulkGetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Numbers) == 0 {
		httpError(w, http.StatusBadRequest, "numbers is required")
		return
	}
	if body.Limit < 0 {
		body.Limit = 0
	}

	writeJSON(w, http.StatusOK, h.svc.FetchBulk(r.Context(), body.Numbers, body.Limit))
}

// LatestMessages serves the newest records across all conversations,
// for diagnostics.
func (h *Handler) LatestMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	recs, err := h.store.Latest(r.Context(), limit)
	if err != nil {
		slog.Error("latest fetch failed", "error", err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": len(recs), "messages": recs})
}

// statusFor maps provider rejections to 400 and everything else
// (store, generation) to 500.
func statusFor(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
