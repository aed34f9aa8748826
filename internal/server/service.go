package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/gst-invoices/internal/common"
	"github.com/joseph-ayodele/gst-invoices/internal/entity"
	"github.com/joseph-ayodele/gst-invoices/internal/pipeline"
)

// InvoiceService is what the transports need from invoices.Service.
type InvoiceService interface {
	ProcessNow(ctx context.Context, doc entity.RawDocument) (entity.InvoiceResult, error)
	Upload(ctx context.Context, doc entity.RawDocument) (*entity.InvoiceRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.InvoiceRecord, error)
	List(ctx context.Context, limit int) ([]*entity.InvoiceRecord, error)
	CorrectLineItem(ctx context.Context, id uuid.UUID, index int, edit pipeline.LineItemEdit) (*entity.InvoiceRecord, error)
	SetInterState(ctx context.Context, id uuid.UUID, interState bool) (*entity.InvoiceRecord, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// documentRequest carries a document. Content is base64 on the wire.
type documentRequest struct {
	Content     []byte `json:"content_base64"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

func (r documentRequest) document() entity.RawDocument {
	return entity.RawDocument{Content: r.Content, ContentType: r.ContentType, Filename: r.Filename}
}

type idRequest struct {
	ID string `json:"id"`
}

type correctionRequest struct {
	ID           string                `json:"id"`
	Index        *int                  `json:"index"`
	Edit         pipeline.LineItemEdit `json:"edit"`
	IsInterState *bool                 `json:"is_inter_state"`
}

func parseID(raw string) (uuid.UUID, error) {
	if err := common.NewValidator().Field("id", raw, common.Required, common.UUID).Err(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

// decodeStruct maps a Struct onto a JSON-tagged Go value.
func decodeStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return common.InvalidInputf("request body is required")
	}
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return common.InvalidInputf("encode request: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return common.InvalidInputf("decode request: %v", err)
	}
	return nil
}

// encodeStruct maps a JSON-tagged Go value onto a Struct.
func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
