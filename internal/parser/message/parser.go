// Package message decodes the JSON render message: columnar "prof" data,
// tick interval, tracked source files and display options.
package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/profvis/internal/parser"
	"github.com/profvis/pkg/compression"
	apperrors "github.com/profvis/pkg/errors"
	"github.com/profvis/pkg/model"
)

// Parser decodes render messages.
type Parser struct {
	// MaxBytes caps the decompressed payload size. 0 means
	// parser.DefaultMaxBytes.
	MaxBytes int64
}

// NewParser creates a message parser.
func NewParser() *Parser {
	return &Parser{}
}

// SupportedFormats returns the formats supported by this parser.
func (p *Parser) SupportedFormats() []string {
	return []string{parser.FormatMessage, "json"}
}

// Name returns the name of this parser.
func (p *Parser) Name() string {
	return "message"
}

// Parse decodes one (possibly compressed) JSON message. Numbers are kept as
// float64 the way the row materializer expects them.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := compression.NewAutoReader(reader)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var msg model.Message
	if err := json.NewDecoder(parser.LimitReader(rc, p.MaxBytes)).Decode(&msg); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, parser.ErrEmptyInput
		case errors.Is(err, parser.ErrInputTooLarge):
			return nil, apperrors.Wrap(apperrors.CodeInputTooLarge, fmt.Sprintf("message exceeds %d bytes", p.maxBytes()), err)
		}
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to decode message", err)
	}
	if msg.Prof == nil {
		return nil, parser.InvalidFormat("message has no prof field")
	}
	if msg.Files == nil {
		msg.Files = []model.SourceFile{}
	}
	return &msg, nil
}

func (p *Parser) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return parser.DefaultMaxBytes
	}
	return p.MaxBytes
}
