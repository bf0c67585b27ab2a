package bleve

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	bucketCollections = []byte("collections")
	bucketItems       = []byte("items")
)

type collectionMeta struct {
	ID        string `json:"id"`
	Root      string `json:"root"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Store) ensureBuckets() error {
	return s.meta.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	})
}

func mustBucket(tx *bbolt.Tx, name []byte) *bbolt.Bucket {
	b := tx.Bucket(name)
	if b == nil {
		panic(fmt.Sprintf("bucket %s missing", name))
	}
	return b
}

func encode(v any) ([]byte, error) { return json.Marshal(v) }

func decode(raw []byte, v any) error { return json.Unmarshal(raw, v) }
