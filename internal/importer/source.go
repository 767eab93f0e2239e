package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RecordReader yields raw records, header row first, and io.EOF at the end.
// Readers holding resources also implement io.Closer; release them with Close.
type RecordReader interface {
	Read() ([]string, error)
}

// NewCSVReader reads delimited text. A leading UTF-8 BOM is dropped and
// records may have any number of fields.
func NewCSVReader(r io.Reader, comma rune) RecordReader {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1
	return cr
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

type workbookReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	closed bool
}

// NewWorkbookReader reads the first sheet of an .xlsx workbook.
func NewWorkbookReader(r io.Reader) (RecordReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return &workbookReader{file: f, rows: rows}, nil
}

func (w *workbookReader) Read() ([]string, error) {
	if w.closed {
		return nil, io.EOF
	}
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return w.rows.Columns()
}

// Close releases the workbook. It is safe to call more than once.
func (w *workbookReader) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.rows.Close(), w.file.Close())
}

// Close releases src if it holds resources; plain delimited readers hold none.
func Close(src RecordReader) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsWorkbook reports whether name looks like an .xlsx file.
func IsWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// OpenReader picks a reader for r based on the file name.
func OpenReader(name string, r io.Reader, comma rune) (RecordReader, error) {
	if IsWorkbook(name) {
		return NewWorkbookReader(r)
	}
	return NewCSVReader(r, comma), nil
}

// ImportFile imports the delimited or workbook file at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	src, err := OpenReader(path, f, im.opts.Comma)
	if err != nil {
		return nil, err
	}
	defer Close(src)
	return im.Import(ctx, src)
}
