// Package bleve backs the indexed query service with a bleve search
// index for ordered paging plus a bbolt sidecar holding item metadata
// and supporting random sampling.
package bleve

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"go.etcd.io/bbolt"

	"mediacarousel/internal/index/store"
)

type Store struct {
	mu       sync.Mutex
	path     string
	metaPath string
	idx      bleve.Index
	meta     *bbolt.DB
	rng      *rand.Rand
}

func itemDoc(collectionID string, it store.Item) map[string]any {
	return map[string]any{
		"collection": collectionID,
		"folder":     it.Folder,
		"kind":       it.Kind,
		"sort_mtime": store.SortValue(it, "mtime"),
		"sort_taken": store.SortValue(it, "taken_at"),
		"sort_name":  it.Name,
	}
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dbPath is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	var idx bleve.Index
	if _, err := os.Stat(filepath.Join(path, "index_meta.json")); err == nil {
		idx, err = bleve.Open(path)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		idx, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, err
		}
	}

	metaPath := filepath.Join(path, "carousel-meta.db")
	meta, err := bbolt.Open(metaPath, 0o600, nil)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	s := &Store{
		path:     path,
		metaPath: metaPath,
		idx:      idx,
		meta:     meta,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.ensureBuckets(); err != nil {
		_ = meta.Close()
		_ = idx.Close()
		return nil, err
	}
	return s, nil
}

func buildMapping() mapping.IndexMapping {
	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("collection", kw)
	doc.AddFieldMappingsAt("folder", kw)
	doc.AddFieldMappingsAt("kind", kw)
	doc.AddFieldMappingsAt("sort_mtime", kw)
	doc.AddFieldMappingsAt("sort_taken", kw)
	doc.AddFieldMappingsAt("sort_name", kw)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.idx != nil {
		_ = s.idx.Close()
	}
	if s.meta != nil {
		_ = s.meta.Close()
	}
	return nil
}

func (s *Store) Backend() string { return "bleve" }

func docID(collectionID string, id string) string { return collectionID + "::" + id }

func (s *Store) EnsureCollection(id string, root string) error {
	if s == nil || s.meta == nil {
		return fmt.Errorf("store is not open")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("collection id is required")
	}

	return s.meta.Update(func(tx *bbolt.Tx) error {
		cb := mustBucket(tx, bucketCollections)
		ib := mustBucket(tx, bucketItems)
		if _, err := ib.CreateBucketIfNotExists([]byte(id)); err != nil {
			return err
		}
		if cb.Get([]byte(id)) != nil {
			return nil
		}
		raw, err := encode(collectionMeta{ID: id, Root: root, CreatedAt: time.Now().Unix()})
		if err != nil {
			return err
		}
		return cb.Put([]byte(id), raw)
	})
}

func (s *Store) UpsertItem(collectionID string, it store.Item) error {
	if s == nil || s.meta == nil || s.idx == nil {
		return fmt.Errorf("store is not open")
	}
	collectionID = strings.TrimSpace(collectionID)
	if collectionID == "" {
		return fmt.Errorf("collectionID is required")
	}
	if strings.TrimSpace(it.ID) == "" {
		return fmt.Errorf("item id is required")
	}
	if err := s.EnsureCollection(collectionID, ""); err != nil {
		return err
	}

	it.CollectionID = collectionID
	err := s.meta.Update(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketItems).Bucket([]byte(collectionID))
		raw, err := encode(it)
		if err != nil {
			return err
		}
		return b.Put([]byte(it.ID), raw)
	})
	if err != nil {
		return err
	}

	return s.idx.Index(docID(collectionID, it.ID), itemDoc(collectionID, it))
}

func (s *Store) DeleteItem(collectionID string, id string) error {
	if s == nil || s.meta == nil || s.idx == nil {
		return fmt.Errorf("store is not open")
	}
	err := s.meta.Update(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketItems).Bucket([]byte(collectionID))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	return s.idx.Delete(docID(collectionID, id))
}

func (s *Store) ReplaceItemsBatch(collectionID string, items []store.Item, deleteIDs []string) error {
	for _, id := range deleteIDs {
		if err := s.DeleteItem(collectionID, id); err != nil {
			return err
		}
	}
	for _, it := range items {
		if err := s.UpsertItem(collectionID, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CountItems(collectionID string) (int, error) {
	if s == nil || s.meta == nil {
		return 0, fmt.Errorf("store is not open")
	}
	n := 0
	err := s.meta.View(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketItems).Bucket([]byte(collectionID))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// RandomItems reservoir-samples the sidecar, recent items first when
// requested, topping up from the remainder.
func (s *Store) RandomItems(collectionID string, q store.RandomQuery) ([]store.Item, error) {
	if s == nil || s.meta == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if q.Count <= 0 {
		return nil, nil
	}

	window := q.RecentWindow
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	since := time.Now().Add(-window).Unix()

	recent := newReservoir(q.Count, s.randInt)
	rest := newReservoir(q.Count, s.randInt)

	err := s.meta.View(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketItems).Bucket([]byte(collectionID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, raw []byte) error {
			var it store.Item
			if err := decode(raw, &it); err != nil {
				return err
			}
			if !folderMatches(q.FolderFilter, it.Folder) {
				return nil
			}
			if q.PriorityRecent && it.MTime >= since {
				recent.offer(it)
			} else {
				rest.offer(it)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out := recent.items
	if len(out) < q.Count {
		need := q.Count - len(out)
		if need > len(rest.items) {
			need = len(rest.items)
		}
		out = append(out, rest.items[:need]...)
	}
	return out, nil
}

// OrderedItems pages via a sorted search with search-after, using the
// zero-padded sort fields so lexicographic order matches numeric order.
func (s *Store) OrderedItems(collectionID string, q store.OrderedQuery) ([]store.Item, error) {
	if s == nil || s.idx == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if q.Count <= 0 {
		return nil, nil
	}
	orderBy, err := store.ValidOrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}
	field := sortField(orderBy)

	var musts []bquery.Query
	ct := bleve.NewTermQuery(collectionID)
	ct.SetField("collection")
	musts = append(musts, ct)

	if q.FolderFilter != "" {
		exact := bleve.NewTermQuery(q.FolderFilter)
		exact.SetField("folder")
		pfx := bleve.NewPrefixQuery(q.FolderFilter + "/")
		pfx.SetField("folder")
		musts = append(musts, bleve.NewDisjunctionQuery(exact, pfx))
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(musts...), q.Count, 0, false)
	if q.Direction == "desc" {
		req.SortBy([]string{"-" + field, "-_id"})
	} else {
		req.SortBy([]string{field, "_id"})
	}
	if q.After != nil {
		req.SearchAfter = []string{q.After.Value, docID(collectionID, q.After.ID)}
	}

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]store.Item, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id := strings.TrimPrefix(hit.ID, collectionID+"::")
		it, ok, err := s.GetMetadata(collectionID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) GetMetadata(collectionID string, id string) (store.Item, bool, error) {
	if s == nil || s.meta == nil {
		return store.Item{}, false, fmt.Errorf("store is not open")
	}
	var it store.Item
	found := false
	err := s.meta.View(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketItems).Bucket([]byte(collectionID))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return decode(raw, &it)
	})
	if err != nil {
		return store.Item{}, false, err
	}
	return it, found, nil
}

func (s *Store) randInt(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func sortField(orderBy string) string {
	switch orderBy {
	case "name":
		return "sort_name"
	case "taken_at":
		return "sort_taken"
	default:
		return "sort_mtime"
	}
}

func folderMatches(filter string, folder string) bool {
	if filter == "" {
		return true
	}
	return folder == filter || strings.HasPrefix(folder, filter+"/")
}

type reservoir struct {
	cap     int
	seen    int
	items   []store.Item
	randInt func(n int) int
}

func newReservoir(capacity int, randInt func(n int) int) *reservoir {
	return &reservoir{cap: capacity, randInt: randInt}
}

func (r *reservoir) offer(it store.Item) {
	r.seen++
	if len(r.items) < r.cap {
		r.items = append(r.items, it)
		return
	}
	if j := r.randInt(r.seen); j < r.cap {
		r.items[j] = it
	}
}
