package chromemdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"book-rag/internal/models"
)

// catalogFile is the YAML sidecar kept next to the chromem collection. chromem
// has no way to enumerate documents, so books, the chunk indexes stored per
// book and index info are tracked here.
type catalogFile struct {
	Index  *models.IndexInfo      `yaml:"index,omitempty"`
	Books  map[string]models.Book `yaml:"books"`
	Stored map[string][]int       `yaml:"stored,omitempty"`
}

type catalog struct {
	mu     sync.RWMutex
	path   string // empty when in memory
	data   catalogFile
	stored map[string]map[int]struct{}
}

func openCatalog(path string) (*catalog, error) {
	c := &catalog{
		path:   path,
		data:   catalogFile{Books: map[string]models.Book{}},
		stored: map[string]map[int]struct{}{},
	}
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	if c.data.Books == nil {
		c.data.Books = map[string]models.Book{}
	}
	for bookID, indexes := range c.data.Stored {
		set := make(map[int]struct{}, len(indexes))
		for _, i := range indexes {
			set[i] = struct{}{}
		}
		c.stored[bookID] = set
	}
	return c, nil
}

// save must be called with mu held.
func (c *catalog) save() error {
	if c.path == "" {
		return nil
	}
	c.data.Stored = make(map[string][]int, len(c.stored))
	for bookID, set := range c.stored {
		indexes := make([]int, 0, len(set))
		for i := range set {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		c.data.Stored[bookID] = indexes
	}
	raw, err := yaml.Marshal(&c.data)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func (c *catalog) put(book models.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Books[book.ID] = book
	return c.save()
}

// addChunk records that chunk index of bookID is in the collection.
func (c *catalog) addChunk(bookID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.stored[bookID]
	if !ok {
		set = map[int]struct{}{}
		c.stored[bookID] = set
	}
	if _, ok := set[index]; ok {
		return nil
	}
	set[index] = struct{}{}
	return c.save()
}

// remove forgets the book and its stored chunks.
func (c *catalog) remove(bookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, listed := c.data.Books[bookID]
	_, stored := c.stored[bookID]
	if !listed && !stored {
		return nil
	}
	delete(c.data.Books, bookID)
	delete(c.stored, bookID)
	return c.save()
}

func (c *catalog) books() []models.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	books := make([]models.Book, 0, len(c.data.Books))
	for _, b := range c.data.Books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

// chunks is the number of chunks of bookID in the collection, whether or not
// the book has a catalog entry.
func (c *catalog) chunks(bookID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stored[bookID])
}

func (c *catalog) index() *models.IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data.Index == nil {
		return nil
	}
	info := *c.data.Index
	return &info
}

func (c *catalog) setIndex(info *models.IndexInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info == nil {
		c.data.Index = nil
	} else {
		copied := *info
		c.data.Index = &copied
	}
	return c.save()
}
