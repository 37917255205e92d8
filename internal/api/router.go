package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /webhook", h.VerifyWebhook)
	mux.HandleFunc("POST /webhook", h.ReceiveWebhook)

	mux.HandleFunc("POST /send", h.Send)
	mux.HandleFunc("POST /initiate", h.Initiate)
	mux.HandleFunc("POST /initiate-bulk", h.InitiateBulk)
	mux.HandleFunc("POST /get", h.Get)
	mux.HandleFunc("POST /get-bulk", h.GetBulk)

	mux.HandleFunc("GET /v1/messages/latest", h.LatestMessages)
	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("whatsapp-bridge"))
	})

	return mux
}
