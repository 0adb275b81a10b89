package store

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"opgraph/internal/graph"
)

const (
	bucketProblems    = "problems"
	bucketTranscripts = "transcripts"
)

// BoltStore keeps problems and their transcripts in a bbolt database.
// Transcripts live in one sub-bucket per problem, keyed by sequence number.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bucketProblems, bucketTranscripts} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(name string, form graph.ProblemForm) error {
	if err := checkName(name); err != nil {
		return err
	}
	b, err := encode(form)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketProblems)).Put([]byte(name), b)
	})
}

func (s *BoltStore) Load(name string) (graph.ProblemForm, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketProblems)).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		// v is only valid inside the transaction.
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return graph.ProblemForm{}, err
	}
	return decode(raw)
}

func (s *BoltStore) List() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketProblems)).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// Delete removes the problem and its transcripts.
func (s *BoltStore) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProblems))
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		if err := b.Delete([]byte(name)); err != nil {
			return err
		}
		tb := tx.Bucket([]byte(bucketTranscripts))
		if tb.Bucket([]byte(name)) != nil {
			return tb.DeleteBucket([]byte(name))
		}
		return nil
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

// AppendTranscript stores t under the next sequence number of problem.
func (s *BoltStore) AppendTranscript(problem string, t Transcript) (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(bucketTranscripts)).CreateBucketIfNotExists([]byte(problem))
		if err != nil {
			return err
		}
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
		v, err := yaml.Marshal(t)
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), v)
	})
	return int(seq), err
}

// Transcripts returns the problem's transcripts, oldest first.
func (s *BoltStore) Transcripts(problem string) ([]Transcript, error) {
	var out []Transcript
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketTranscripts)).Bucket([]byte(problem))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var t Transcript
			if err := yaml.Unmarshal(v, &t); err != nil {
				return err
			}
			t.Seq = int(unmarshalSeq(k))
			out = append(out, t)
			return nil
		})
	})
	return out, err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
