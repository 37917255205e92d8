package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
	"github.com/wo-aiml-user/whatsapp-bot/internal/store"
)

// SendClient is the slice of the provider client the service needs.
type SendClient interface {
	SendText(ctx context.Context, to, body string) (json.RawMessage, error)
	SendTemplate(ctx context.Context, to, templateName, languageCode string) (json.RawMessage, error)
}

// ReplyGenerator produces reply text from chronological conversation
// history that already includes the latest user message.
type ReplyGenerator interface {
	Generate(ctx context.Context, userNumber string, history []model.Record) (string, error)
}

// Service drives the conversation flows: webhook ingestion with
// auto-reply, outbound initiation, and history fetches.
type Service struct {
	store  store.MessageStore
	client SendClient
	gen    ReplyGenerator

	selfNumber       string
	defaultTemplate  string
	templateLanguage string

	now func() time.Time
}

func New(st store.MessageStore, client SendClient, gen ReplyGenerator, selfNumber, defaultTemplate, templateLanguage string) *Service {
	return &Service{
		store:            st,
		client:           client,
		gen:              gen,
		selfNumber:       model.NormalizeNumber(selfNumber),
		defaultTemplate:  defaultTemplate,
		templateLanguage: templateLanguage,
		now:              time.Now,
	}
}

// HandleInbound persists one inbound webhook record and dispatches the
// auto-reply. The returned error covers the inbound append only; reply
// failures are logged and never undo the stored inbound message.
func (s *Service) HandleInbound(ctx context.Context, rec model.Record) error {
	// Classify before the append so the just-received message does not
	// count as prior history. Concurrent deliveries for the same number
	// can race this read; there is no lock, matching the provider's
	// at-least-once delivery model.
	existing, err := s.store.Exists(ctx, rec.From)
	if err != nil {
		return err
	}

	if err := s.store.Append(ctx, rec.From, rec); err != nil {
		return err
	}
	slog.Info("inbound stored", "number", rec.From, "id", rec.ID, "type", rec.Type, "existing", existing)

	if err := s.reply(ctx, rec.From, existing); err != nil {
		slog.Error("reply dispatch failed", "number", rec.From, "error", err)
	}
	return nil
}

// reply sends the template (new contact) or a generated text (existing
// contact) to number and persists the outbound record.
func (s *Service) reply(ctx context.Context, number string, existing bool) error {
	var (
		resp json.RawMessage
		kind string
		body string
		err  error
	)

	if !existing {
		kind = "template"
		resp, err = s.client.SendTemplate(ctx, number, s.defaultTemplate, s.templateLanguage)
	} else {
		kind = "text"
		var history []model.Record
		history, err = s.history(ctx, number)
		if err != nil {
			return err
		}
		body, err = s.gen.Generate(ctx, number, history)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		resp, err = s.client.SendText(ctx, number, body)
	}
	if err != nil {
		return err
	}

	out := s.outboundRecord(number, kind, body, resp)
	if err := s.store.Append(ctx, number, out); err != nil {
		return fmt.Errorf("store outbound: %w", err)
	}
	slog.Info("outbound stored", "number", number, "kind", kind, "id", out.ID)
	return nil
}

// history returns the conversation chronological (oldest first) for
// prompt assembly; the store serves newest-first.
func (s *Service) history(ctx context.Context, number string) ([]model.Record, error) {
	recs, err := s.store.Query(ctx, number, 0)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (s *Service) outboundRecord(number, kind, body string, resp json.RawMessage) model.Record {
	return model.Record{
		ID:        uuid.NewString(),
		From:      s.selfNumber,
		To:        number,
		Timestamp: strconv.FormatInt(s.now().Unix(), 10),
		Type:      kind,
		Body:      body,
		Raw:       resp,
	}
}

// Send delivers a free-form text to number and persists the outbound
// record. Used by the explicit /send flow; errors surface to the caller.
func (s *Service) Send(ctx context.Context, number, text string) (json.RawMessage, error) {
	number = model.NormalizeNumber(number)

	resp, err := s.client.SendText(ctx, number, text)
	if err != nil {
		return nil, err
	}

	out := s.outboundRecord(number, "text", text, resp)
	if err := s.store.Append(ctx, number, out); err != nil {
		return nil, fmt.Errorf("store outbound: %w", err)
	}
	return resp, nil
}

// Initiate opens or continues a conversation with number: template for
// a new contact, generated reply for an existing one. Unlike the
// webhook flow, every failure surfaces to the caller.
func (s *Service) Initiate(ctx context.Context, number string) (json.RawMessage, error) {
	number = model.NormalizeNumber(number)

	existing, err := s.store.Exists(ctx, number)
	if err != nil {
		return nil, err
	}

	var (
		resp json.RawMessage
		kind string
		body string
	)
	if !existing {
		kind = "template"
		resp, err = s.client.SendTemplate(ctx, number, s.defaultTemplate, s.templateLanguage)
	} else {
		kind = "text"
		var history []model.Record
		history, err = s.history(ctx, number)
		if err != nil {
			return nil, err
		}
		body, err = s.gen.Generate(ctx, number, history)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		resp, err = s.client.SendText(ctx, number, body)
	}
	if err != nil {
		return nil, err
	}

	out := s.outboundRecord(number, kind, body, resp)
	if err := s.store.Append(ctx, number, out); err != nil {
		return nil, fmt.Errorf("store outbound: %w", err)
	}

	slog.Info("conversation initiated", "number", number, "kind", kind)
	return resp, nil
}

type InitiateResult struct {
	Number   string          `json:"number"`
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type BulkInitiateSummary struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []InitiateResult `json:"results"`
}

// InitiateBulk runs Initiate per number with isolated outcomes: one
// number's failure never aborts the rest.
func (s *Service) InitiateBulk(ctx context.Context, numbers []string) BulkInitiateSummary {
	summary := BulkInitiateSummary{
		Total:   len(numbers),
		Results: make([]InitiateResult, 0, len(numbers)),
	}

	for _, number := range numbers {
		resp, err := s.Initiate(ctx, number)
		if err != nil {
			summary.Failed++
			slog.Error("bulk initiate item failed", "number", number, "error", err)
			summary.Results = append(summary.Results, InitiateResult{
				Number: number,
				Error:  err.Error(),
			})
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, InitiateResult{
			Number:   number,
			Success:  true,
			Response: resp,
		})
	}
	return summary
}

// Fetch returns number's stored history newest-first; limit=0 means
// unbounded.
func (s *Service) Fetch(ctx context.Context, number string, limit int) ([]model.Record, error) {
	return s.store.Query(ctx, model.NormalizeNumber(number), limit)
}

type FetchResult struct {
	Number   string         `json:"number"`
	Success  bool           `json:"success"`
	Count    int            `json:"count"`
	Messages []model.Record `json:"messages"`
}

type BulkFetchSummary struct {
	TotalNumbers  int           `json:"total_numbers"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	TotalMessages int           `json:"total_messages"`
	Results       []FetchResult `json:"results"`
}

// FetchBulk fetches history per number. A number with no records (or a
// store failure, which is also logged) reports success=false with an
// empty message list; it never aborts the batch.
func (s *Service) FetchBulk(ctx context.Context, numbers []string, limit int) BulkFetchSummary {
	summary := BulkFetchSummary{
		TotalNumbers: len(numbers),
		Results:      make([]FetchResult, 0, len(numbers)),
	}

	for _, number := range numbers {
		recs, err := s.Fetch(ctx, number, limit)
		if err != nil {
			slog.Error("bulk fetch item failed", "number", number, "error", err)
			recs = nil
		}
		result := FetchResult{
			Number:   number,
			Success:  len(recs) > 0,
			Count:    len(recs),
			Messages: recs,
		}
		if result.Messages == nil {
			result.Messages = []model.Record{}
		}
		if result.Success {
			summary.Successful++
			summary.TotalMessages += result.Count
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary
}
