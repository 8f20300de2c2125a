package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"car-scraper/models"
	"car-scraper/utils"
)

var (
	// ErrNotFound is returned by Get when no readable record carries the id.
	ErrNotFound = errors.New("storage: listing not found")
	// ErrHeaderMismatch is returned when an existing file has a different column layout.
	ErrHeaderMismatch = errors.New("storage: unexpected csv header")
)

// CSVStore persists listings in a flat CSV file, one record per row, keyed by id.
// New records are appended; updates rewrite the file into a temporary sibling
// and rename it over the original, so readers never see a half-applied write.
// A single writer is assumed; the mutex only serialises callers within one process.
type CSVStore struct {
	mu     sync.Mutex
	path   string
	logger *utils.Logger
	now    func() time.Time

	// index maps id to the byte offset of its row.
	index map[string]int64
}

// OpenCSVStore opens the store at path, creating it (and intermediate
// directories) with a header row when it does not exist yet.
func OpenCSVStore(path string, logger *utils.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("storage: create store dir: %w", err)
	}

	s := &CSVStore{
		path:   path,
		logger: logger,
		now:    time.Now,
		index:  make(map[string]int64),
	}

	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) ensureFile() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.writeHeader()
	}
	if err != nil {
		return fmt.Errorf("storage: open %q: %w", s.path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return s.writeHeader()
	}
	if err != nil {
		return fmt.Errorf("storage: read header of %q: %w", s.path, err)
	}
	if len(header) != len(Columns) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrHeaderMismatch, len(header), len(Columns))
	}
	for i, name := range Columns {
		if header[i] != name {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i, header[i], name)
		}
	}
	return nil
}

func (s *CSVStore) writeHeader() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("storage: create %q: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: write header: %w", err)
	}
	return f.Close()
}

// errTornRow marks a final row whose quoted field was cut off by an interrupted write.
var errTornRow = errors.New("storage: row cut short by an interrupted write")

// rowFunc receives each data row with its byte offset. err is a *csv.ParseError
// or errTornRow for rows that could not be tokenised. Returning false stops the walk.
type rowFunc func(offset int64, record []string, err error) bool

// walk reads every data row in file order. I/O failures are returned;
// row-level csv errors are passed to fn.
func (s *CSVStore) walk(fn rowFunc) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("storage: open %q: %w", s.path, err)
	}
	defer f.Close()

	if err := walkRows(f, fn); err != nil {
		return fmt.Errorf("storage: read %q: %w", s.path, err)
	}
	return nil
}

func walkRows(src io.Reader, fn rowFunc) error {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var pe *csv.ParseError
		if !errors.As(err, &pe) {
			return fmt.Errorf("header: %w", err)
		}
	}

	for {
		offset := r.InputOffset()
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			// An unterminated quoted field at end of file comes back with io.EOF.
			if len(record) > 0 {
				fn(offset, record, errTornRow)
			}
			return nil
		}
		var pe *csv.ParseError
		if err != nil && !errors.As(err, &pe) {
			return err
		}
		if !fn(offset, record, err) {
			return nil
		}
	}
}

// tailSeal returns the bytes that terminate data's last line when an
// interrupted write left it without a newline: a newline, preceded by a
// closing quote when the fragment stopped inside a quoted field. Rows are
// always written on one line, so the quote parity of the last line decides.
func tailSeal(data []byte) []byte {
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}
	last := data[bytes.LastIndexByte(data, '\n')+1:]
	if bytes.Count(last, []byte{'"'})%2 == 1 {
		return []byte("\"\n")
	}
	return []byte("\n")
}

// readTail returns the end of f's first size bytes, back to and including
// the last newline.
func readTail(f *os.File, size int64) ([]byte, error) {
	const chunk = 4096
	var tail []byte
	for end := size; end > 0; {
		start := max(end-chunk, 0)
		buf := make([]byte, end-start)
		if _, err := f.ReadAt(buf, start); err != nil {
			return nil, err
		}
		tail = append(buf, tail...)
		if bytes.IndexByte(buf, '\n') >= 0 {
			break
		}
		end = start
	}
	return tail, nil
}

func (s *CSVStore) rebuildIndex() error {
	index := make(map[string]int64)
	err := s.walk(func(offset int64, record []string, err error) bool {
		if err != nil || len(record) == 0 {
			return true
		}
		if _, dup := index[record[colID]]; !dup {
			index[record[colID]] = offset
		}
		return true
	})
	if err != nil {
		return err
	}
	s.index = index
	return nil
}

// readAt decodes the single row starting at offset.
func (s *CSVStore) readAt(offset int64) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("storage: seek: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.Read()
}

// Upsert inserts the listing when its id is unseen and returns true; otherwise
// it replaces every row carrying that id with the new record and returns false.
func (s *CSVStore) Upsert(listing *models.Listing) (bool, error) {
	if err := listing.Validate(s.now()); err != nil {
		return false, fmt.Errorf("storage: upsert: %w", err)
	}
	row, err := EncodeRow(listing)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[listing.ID]; !exists {
		offset, err := s.appendRow(row)
		if err != nil {
			return false, err
		}
		s.index[listing.ID] = offset
		s.logger.Debug("[store] Inserted %s", listing.ID)
		return true, nil
	}

	if err := s.replace(listing.ID, row); err != nil {
		return false, err
	}
	s.logger.Debug("[store] Replaced %s", listing.ID)
	return false, nil
}

// appendRow writes row at the end of the file and returns its offset. A last
// line left unterminated by an interrupted append is sealed first so the new
// row starts on a line of its own.
func (s *CSVStore) appendRow(row []string) (int64, error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return 0, fmt.Errorf("storage: open %q for append: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat %q: %w", s.path, err)
	}
	offset := info.Size()

	tail, err := readTail(f, offset)
	if err != nil {
		return 0, fmt.Errorf("storage: read tail of %q: %w", s.path, err)
	}
	if seal := tailSeal(tail); seal != nil {
		s.logger.Warn("[store] Last row of %s was cut short; terminating it before appending", s.path)
		if _, err := f.Write(seal); err != nil {
			return 0, fmt.Errorf("storage: seal last row: %w", err)
		}
		offset += int64(len(seal))
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return 0, fmt.Errorf("storage: append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("storage: append row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("storage: sync %q: %w", s.path, err)
	}
	return offset, nil
}

// replace writes header + all rows not carrying id + row into a temporary
// file and renames it over the store. Kept rows are copied byte for byte, so
// rows that cannot be parsed survive the rewrite.
func (s *CSVStore) replace(id string, row []string) (err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("storage: read %q: %w", s.path, err)
	}

	type span struct {
		start int64
		drop  bool
	}
	var spans []span
	err = walkRows(bytes.NewReader(data), func(offset int64, record []string, rerr error) bool {
		if rerr != nil {
			s.logger.Warn("[store] Keeping unreadable row at offset %d as is: %v", offset, rerr)
		}
		drop := rerr == nil && len(record) > 0 && record[colID] == id
		spans = append(spans, span{start: offset, drop: drop})
		return true
	})
	if err != nil {
		return fmt.Errorf("storage: read %q: %w", s.path, err)
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(Columns); err != nil {
		return fmt.Errorf("storage: write header: %w", err)
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("storage: write header: %w", err)
	}

	var lastKept []byte
	for i, sp := range spans {
		if sp.drop {
			continue
		}
		end := int64(len(data))
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		lastKept = data[sp.start:end]
		if _, err = tmp.Write(lastKept); err != nil {
			return fmt.Errorf("storage: copy row: %w", err)
		}
	}
	if seal := tailSeal(lastKept); seal != nil {
		if _, err = tmp.Write(seal); err != nil {
			return fmt.Errorf("storage: seal last row: %w", err)
		}
	}

	if err = w.Write(row); err != nil {
		return fmt.Errorf("storage: write row: %w", err)
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("storage: flush temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync temp file: %w", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("storage: chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("storage: rename temp file: %w", err)
	}

	return s.rebuildIndex()
}

// Get returns the stored listing with the given id, or ErrNotFound.
func (s *CSVStore) Get(id string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if offset, ok := s.index[id]; ok {
		record, err := s.readAt(offset)
		if err == nil && len(record) > 0 && record[colID] == id {
			l, derr := DecodeRow(record, s.now())
			if derr == nil {
				return l, nil
			}
			s.logger.Warn("[store] Skipping corrupt row for %s: %v", id, derr)
		}
	}

	return s.lookup(id)
}

// lookup is the linear-scan fallback used when the index is stale.
func (s *CSVStore) lookup(id string) (*models.Listing, error) {
	var found *models.Listing
	now := s.now()
	err := s.walk(func(offset int64, record []string, rerr error) bool {
		if rerr != nil || len(record) == 0 || record[colID] != id {
			return true
		}
		l, derr := DecodeRow(record, now)
		if derr != nil {
			s.logger.Warn("[store] Skipping corrupt row at offset %d: %v", offset, derr)
			return true
		}
		found = l
		s.index[id] = offset
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ScanAll returns every readable record in file order. Rows that fail to
// decode are logged and skipped.
func (s *CSVStore) ScanAll() ([]*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listings := make([]*models.Listing, 0, len(s.index))
	now := s.now()
	err := s.walk(func(offset int64, record []string, rerr error) bool {
		if rerr != nil {
			s.logger.Warn("[store] Could not parse row at offset %d: %v", offset, rerr)
			return true
		}
		l, derr := DecodeRow(record, now)
		if derr != nil {
			s.logger.Warn("[store] Could not parse row at offset %d: %v", offset, derr)
			return true
		}
		listings = append(listings, l)
		return true
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ScanRecent returns up to limit records ordered by ScrapedAt descending.
// Equal timestamps keep file order.
func (s *CSVStore) ScanRecent(limit int) ([]*models.Listing, error) {
	if limit <= 0 {
		return []*models.Listing{}, nil
	}
	listings, err := s.ScanAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].ScrapedAt.After(listings[j].ScrapedAt)
	})
	if len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

// Count returns the number of data rows, readable or not.
func (s *CSVStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	err := s.walk(func(int64, []string, error) bool {
		n++
		return true
	})
	return n, err
}
