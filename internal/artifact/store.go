package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ID identifies a named artifact within a store.
type ID string

// The artifacts produced by the analysis pipeline.
const (
	// Scrape holds the per-subject scraped article content.
	Scrape ID = "scrape"

	// Images holds the flat deduplicated list of every image URL ever
	// collected into this store. Unlike the other artifacts it is a JSON
	// array, not a subject-keyed mapping.
	Images ID = "images"

	// Wiki holds the per-subject Wikipedia fact-check results.
	Wiki ID = "wiki"

	// FakeNews holds the per-subject fake-news classification.
	FakeNews ID = "fakenews"

	// ImageEval holds the per-image authenticity evaluations.
	ImageEval ID = "imageeval"

	// Verdict holds the final per-subject validity summaries.
	Verdict ID = "verdict"
)

// filenames maps artifact IDs to their on-disk file names.
// The names match the documents produced by earlier versions of the
// toolchain so existing stores keep working.
var filenames = map[ID]string{
	Scrape:    "scraper_output.json",
	Images:    "scraper_images.json",
	Wiki:      "wiki_fact_check_results.json",
	FakeNews:  "fake_news_analysis.json",
	ImageEval: "scraper_images_evaluation.json",
	Verdict:   "news_validity_summary.json",
}

// Store errors.
var (
	// ErrArtifactNotFound is returned when a declared input artifact does
	// not exist. This is a missing-dependency fault for the consumer,
	// never an empty collection.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrSubjectNotFound is returned when an artifact exists but has no
	// entry for the requested subject.
	ErrSubjectNotFound = errors.New("subject not found in artifact")

	// ErrUnknownArtifact is returned for an ID outside the fixed set.
	ErrUnknownArtifact = errors.New("unknown artifact id")
)

// Store is a file-addressed JSON document store rooted at a directory.
// Each stage is the sole writer of its own output artifact, so the store
// needs no locking; read-after-write visibility is guaranteed by the
// atomic rename in persist.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path backing the given artifact.
func (s *Store) Path(id ID) string {
	return filepath.Join(s.dir, filenames[id])
}

// Exists reports whether the artifact has been produced.
func (s *Store) Exists(id ID) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Read returns the full subject-keyed document for an artifact.
// A nonexistent artifact returns ErrArtifactNotFound.
func (s *Store) Read(id ID) (map[string]json.RawMessage, error) {
	data, err := s.readFile(id)
	if err != nil {
		return nil, err
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("artifact %s is not a subject-keyed document: %w", id, err)
	}
	return doc, nil
}

// ReadRecord decodes the record stored for one subject into out.
func (s *Store) ReadRecord(id ID, subject string, out any) error {
	doc, err := s.Read(id)
	if err != nil {
		return err
	}

	raw, ok := doc[subject]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrSubjectNotFound, subject, id)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s record for %s: %w", id, subject, err)
	}
	return nil
}

// Write merges record into the artifact's document under the subject key,
// preserving all other subjects' entries, and persists atomically.
func (s *Store) Write(id ID, subject string, record any) error {
	doc, err := s.Read(id)
	if err != nil {
		if !errors.Is(err, ErrArtifactNotFound) {
			return err
		}
		doc = make(map[string]json.RawMessage)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s record for %s: %w", id, subject, err)
	}
	doc[subject] = raw

	return s.Replace(id, doc)
}

// Replace persists a whole document for the artifact, atomically replacing
// any previous content. Used by stages whose output is rebuilt per run,
// such as the aggregator's idempotent per-subject overwrite.
func (s *Store) Replace(id ID, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", id, err)
	}
	return s.persist(id, data)
}

// ReadImageList returns the accumulated flat image URL list.
// A nonexistent images artifact returns ErrArtifactNotFound.
func (s *Store) ReadImageList() ([]string, error) {
	data, err := s.readFile(Images)
	if err != nil {
		return nil, err
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("images artifact is not a URL list: %w", err)
	}
	return urls, nil
}

// MergeImageList adds URLs to the accumulated image list, deduplicating
// and sorting so repeated merges of the same inputs are byte-identical.
func (s *Store) MergeImageList(urls []string) error {
	existing, err := s.ReadImageList()
	if err != nil && !errors.Is(err, ErrArtifactNotFound) {
		return err
	}

	seen := make(map[string]bool, len(existing)+len(urls))
	merged := make([]string, 0, len(existing)+len(urls))
	for _, u := range append(existing, urls...) {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		merged = append(merged, u)
	}
	sort.Strings(merged)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode image list: %w", err)
	}
	return s.persist(Images, data)
}

// readFile loads an artifact's raw bytes, mapping absence to
// ErrArtifactNotFound.
func (s *Store) readFile(id ID) ([]byte, error) {
	name, ok := filenames[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	return data, nil
}

// persist writes data to the artifact's file via a temp file in the same
// directory followed by a rename. Readers see either the old complete
// document or the new one, never a partial write.
func (s *Store) persist(id ID, data []byte) error {
	name, ok := filenames[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownArtifact, id)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for artifact %s: %w", id, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync artifact %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %s: %w", id, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist artifact %s: %w", id, err)
	}
	return nil
}
