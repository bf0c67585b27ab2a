package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediacarousel/internal/index/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Backend() string { return "sqlite" }

func (s *Store) EnsureCollection(id string, root string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("collection id is required")
	}
	_, err := s.db.Exec(
		`INSERT INTO collections (id, root, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, root, time.Now().Unix(),
	)
	return err
}

func (s *Store) UpsertItem(collectionID string, it store.Item) error {
	if s == nil || s.db == nil {
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
	_, err := s.db.Exec(
		`INSERT INTO items (collection_id, id, folder, name, kind, size, mtime, taken_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection_id, id) DO UPDATE SET
		   folder=excluded.folder,
		   name=excluded.name,
		   kind=excluded.kind,
		   size=excluded.size,
		   mtime=excluded.mtime,
		   taken_at=excluded.taken_at`,
		collectionID, it.ID, it.Folder, it.Name, it.Kind, it.Size, it.MTime, it.TakenAt,
	)
	return err
}

func (s *Store) DeleteItem(collectionID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	_, err := s.db.Exec(
		`DELETE FROM items WHERE collection_id = ? AND id = ?`,
		collectionID, id,
	)
	return err
}

// ReplaceItemsBatch applies upserts and deletes in one transaction, so a
// watcher sync never exposes a half-applied folder.
func (s *Store) ReplaceItemsBatch(collectionID string, items []store.Item, deleteIDs []string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	collectionID = strings.TrimSpace(collectionID)
	if collectionID == "" {
		return fmt.Errorf("collectionID is required")
	}
	if err := s.EnsureCollection(collectionID, ""); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range deleteIDs {
		if _, err := tx.Exec(`DELETE FROM items WHERE collection_id = ? AND id = ?`, collectionID, id); err != nil {
			return err
		}
	}
	for _, it := range items {
		if _, err := tx.Exec(
			`INSERT INTO items (collection_id, id, folder, name, kind, size, mtime, taken_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(collection_id, id) DO UPDATE SET
			   folder=excluded.folder,
			   name=excluded.name,
			   kind=excluded.kind,
			   size=excluded.size,
			   mtime=excluded.mtime,
			   taken_at=excluded.taken_at`,
			collectionID, it.ID, it.Folder, it.Name, it.Kind, it.Size, it.MTime, it.TakenAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CountItems(collectionID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM items WHERE collection_id = ?`,
		collectionID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RandomItems picks a uniform random batch. With PriorityRecent the batch
// is drawn from the recent window first and topped up from the full pool.
func (s *Store) RandomItems(collectionID string, q store.RandomQuery) ([]store.Item, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if q.Count <= 0 {
		return nil, nil
	}

	var out []store.Item
	if q.PriorityRecent {
		window := q.RecentWindow
		if window <= 0 {
			window = 7 * 24 * time.Hour
		}
		since := time.Now().Add(-window).Unix()
		recent, err := s.randomBatch(collectionID, q.FolderFilter, q.Count, &since, nil)
		if err != nil {
			return nil, err
		}
		out = recent
	}

	if len(out) < q.Count {
		exclude := make([]string, 0, len(out))
		for _, it := range out {
			exclude = append(exclude, it.ID)
		}
		rest, err := s.randomBatch(collectionID, q.FolderFilter, q.Count-len(out), nil, exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

func (s *Store) randomBatch(collectionID string, folderFilter string, count int, since *int64, excludeIDs []string) ([]store.Item, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, folder, name, kind, size, mtime, taken_at
		 FROM items WHERE collection_id = ?`)
	args := []any{collectionID}

	if folderFilter != "" {
		b.WriteString(` AND (folder = ? OR folder LIKE ?)`)
		args = append(args, folderFilter, folderFilter+"/%")
	}
	if since != nil {
		b.WriteString(` AND mtime >= ?`)
		args = append(args, *since)
	}
	if len(excludeIDs) > 0 {
		b.WriteString(` AND id NOT IN (?` + strings.Repeat(",?", len(excludeIDs)-1) + `)`)
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	b.WriteString(` ORDER BY RANDOM() LIMIT ?`)
	args = append(args, count)

	return s.queryItems(collectionID, b.String(), args)
}

// OrderedItems pages through the collection by keyset: strictly after the
// cursor's (value, id) in the requested direction.
func (s *Store) OrderedItems(collectionID string, q store.OrderedQuery) ([]store.Item, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if q.Count <= 0 {
		return nil, nil
	}
	orderBy, err := store.ValidOrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}
	col := orderColumn(orderBy)

	desc := q.Direction == "desc"
	op, dir := ">", "ASC"
	if desc {
		op, dir = "<", "DESC"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT id, folder, name, kind, size, mtime, taken_at
		 FROM items WHERE collection_id = ?`)
	args := []any{collectionID}

	if q.FolderFilter != "" {
		b.WriteString(` AND (folder = ? OR folder LIKE ?)`)
		args = append(args, q.FolderFilter, q.FolderFilter+"/%")
	}
	if q.After != nil {
		cv, err := cursorValue(orderBy, q.After.Value)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, ` AND (%s %s ? OR (%s = ? AND id %s ?))`, col, op, col, op)
		args = append(args, cv, cv, q.After.ID)
	}
	fmt.Fprintf(&b, ` ORDER BY %s %s, id %s LIMIT ?`, col, dir, dir)
	args = append(args, q.Count)

	return s.queryItems(collectionID, b.String(), args)
}

func (s *Store) GetMetadata(collectionID string, id string) (store.Item, bool, error) {
	if s == nil || s.db == nil {
		return store.Item{}, false, fmt.Errorf("store is not open")
	}
	it := store.Item{CollectionID: collectionID, ID: id}
	err := s.db.QueryRow(
		`SELECT folder, name, kind, size, mtime, taken_at
		 FROM items WHERE collection_id = ? AND id = ?`,
		collectionID, id,
	).Scan(&it.Folder, &it.Name, &it.Kind, &it.Size, &it.MTime, &it.TakenAt)
	if err == sql.ErrNoRows {
		return store.Item{}, false, nil
	}
	if err != nil {
		return store.Item{}, false, err
	}
	return it, true, nil
}

func (s *Store) queryItems(collectionID string, query string, args []any) ([]store.Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Item
	for rows.Next() {
		it := store.Item{CollectionID: collectionID}
		if err := rows.Scan(&it.ID, &it.Folder, &it.Name, &it.Kind, &it.Size, &it.MTime, &it.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func orderColumn(orderBy string) string {
	switch orderBy {
	case "name":
		return "name"
	case "taken_at":
		return "taken_at"
	default:
		return "mtime"
	}
}

// cursorValue converts the cursor's string form back to the column type:
// numeric sort fields carry zero-padded integers.
func cursorValue(orderBy string, value string) (any, error) {
	if orderBy == "name" {
		return value, nil
	}
	var n int64
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return nil, fmt.Errorf("invalid cursor value %q: %w", value, err)
	}
	return n, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}
	_, _ = s.db.Exec("PRAGMA journal_mode = WAL")

	return execStatements(s.db, schemaSQL)
}

func execStatements(db *sql.DB, sqlText string) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	sqlText = strings.ReplaceAll(sqlText, "\r\n", "\n")

	var cleaned strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	for _, raw := range strings.Split(cleaned.String(), ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
