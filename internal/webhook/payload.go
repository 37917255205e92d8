// Package webhook parses WhatsApp Cloud API callback payloads into
// message records. Status updates (delivery/read/sent receipts) are
// recognized and counted but never yield records.
package webhook

import (
	"encoding/json"
	"log/slog"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
)

type Payload struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	Metadata Metadata          `json:"metadata"`
	Contacts []Contact         `json:"contacts"`
	Messages []json.RawMessage `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID string `json:"wa_id"`
}

// inboundMessage covers the provider fields this system reads; the full
// fragment is preserved as Record.Raw.
type inboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive struct {
		NFMReply struct {
			Body string `json:"body"`
		} `json:"nfm_reply"`
		ButtonReply struct {
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// Parse walks every entry/changes/value block (providers batch) and
// returns normalized records plus the count of status updates skipped.
func Parse(p Payload) (records []model.Record, statuses int) {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			statuses += len(value.Statuses)

			to := value.Metadata.DisplayPhoneNumber
			if to == "" {
				to = value.Metadata.PhoneNumberID
			}

			for _, raw := range value.Messages {
				var msg inboundMessage
				if err := json.Unmarshal(raw, &msg); err != nil {
					slog.Warn("webhook: skipping undecodable message", "error", err)
					continue
				}
				if msg.From == "" {
					slog.Warn("webhook: skipping message without sender", "id", msg.ID)
					continue
				}

				records = append(records, model.Record{
					ID:        msg.ID,
					From:      model.NormalizeNumber(msg.From),
					To:        model.NormalizeNumber(to),
					Timestamp: msg.Timestamp,
					Type:      msg.Type,
					Body:      bodyFor(msg),
					Raw:       raw,
				})
			}
		}
	}
	return records, statuses
}

func bodyFor(msg inboundMessage) string {
	switch msg.Type {
	case "text":
		return msg.Text.Body
	case "button":
		return msg.Button.Text
	case "interactive":
		if msg.Interactive.NFMReply.Body != "" {
			return msg.Interactive.NFMReply.Body
		}
		return msg.Interactive.ButtonReply.Title
	default:
		// Media and unknown types store an empty body; Raw keeps the
		// original fragment.
		return ""
	}
}
