package feed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileSystemSink writes generated feeds to disk.
type FileSystemSink struct {
	logger *zap.Logger
}

// NewFileSystemSink returns a sink that logs through the given logger.
func NewFileSystemSink(logger *zap.Logger) *FileSystemSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemSink{logger: logger}
}

// WriteTSV writes the products as a tab-separated Merchant Center feed.
// The header row comes first; rows follow the Columns order.
func (s *FileSystemSink) WriteTSV(ctx context.Context, path string, products []Product) error {
	if len(products) == 0 {
		return fmt.Errorf("no products to write")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating feed dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open feed file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("write feed header: %w", err)
	}
	for _, p := range products {
		if err := w.Write(p.Row()); err != nil {
			return fmt.Errorf("write feed row %s: %w", p.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush feed %s: %w", path, err)
	}

	s.logger.Info("Exported TSV feed", zap.String("path", path), zap.Int("products", len(products)))
	return nil
}

// WriteJSON writes the products as an indented JSON array. Non-ASCII text is
// preserved as-is.
func (s *FileSystemSink) WriteJSON(ctx context.Context, path string, products []Product) error {
	if len(products) == 0 {
		return fmt.Errorf("no products to write")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating feed dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open feed file %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("encode feed %s: %w", path, err)
	}

	s.logger.Info("Exported JSON feed", zap.String("path", path), zap.Int("products", len(products)))
	return nil
}
