package textfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Apurer/stock-ledger/internal/domains/inventory/domain"
	"github.com/Apurer/stock-ledger/internal/domains/inventory/ports"
)

var _ ports.Storage = (*Storage)(nil)

// Storage keeps the ledger in a plain text file, one "name,quantity" line per
// batch. Expiry and pricing are not part of the format and are lost on reload.
type Storage struct {
	path string
}

// NewStorage returns a storage bound to path.
func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

// Path returns the file the storage writes to.
func (s *Storage) Path() string { return s.path }

// Save overwrites the file with one line per batch. The file is written to a
// temporary sibling first and renamed into place.
func (s *Storage) Save(ctx context.Context, ledger *domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return domain.NewSaveError(s.path, err)
	}
	if ledger == nil {
		ledger = domain.NewLedger()
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewSaveError(s.path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return domain.NewSaveError(s.path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, b := range ledger.AllBatches() {
		if _, err := fmt.Fprintf(w, "%s,%d\n", b.Name, b.Quantity); err != nil {
			_ = tmp.Close()
			return domain.NewSaveError(s.path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return domain.NewSaveError(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewSaveError(s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return domain.NewSaveError(s.path, err)
	}
	return nil
}

// Load parses the file. A missing file yields an empty ledger. Malformed lines
// are skipped and reported with their 1-based line number.
func (s *Storage) Load(ctx context.Context) (*domain.Ledger, []error, error) {
	ledger := domain.NewLedger()
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()

	var problems []error
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, problems, err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		batch, err := parseLine(line, raw)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if err := ledger.Add(batch); err != nil {
			problems = append(problems, withLine(err, line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, problems, err
	}
	return ledger, problems, nil
}

func parseLine(line int, raw string) (domain.Batch, error) {
	fields := strings.Split(raw, ",")
	if len(fields) != 2 {
		return domain.Batch{}, domain.NewInvalidLineFormat(line, raw)
	}
	qtyField := strings.TrimSpace(fields[1])
	quantity, err := strconv.Atoi(qtyField)
	if err != nil {
		return domain.Batch{}, domain.NewInvalidQuantityFormat(line, qtyField, err)
	}
	if quantity <= 0 {
		invalid := domain.NewInvalidQuantity(domain.NormalizeName(fields[0]), quantity)
		invalid.Line = line
		return domain.Batch{}, invalid
	}
	return domain.NewBatch(fields[0], quantity, nil), nil
}

func withLine(err error, line int) error {
	var ledgerErr *domain.Error
	if errors.As(err, &ledgerErr) && ledgerErr.Line == 0 {
		copied := *ledgerErr
		copied.Line = line
		return &copied
	}
	return err
}
