// Package cache is a content-addressed transcript store keyed by
// (video id, language). It only saves repeat network fetches; the pipeline
// stays correct with caching disabled entirely.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"ytbrief/models"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at path. Use
// ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("error creating directory for cache: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %v", err)
	}

	if path == ":memory:" {
		// Every pooled connection to :memory: would get its own empty
		// database, so pin the pool to one connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
                    video_id TEXT NOT NULL,
                    language TEXT NOT NULL,
                    source TEXT NOT NULL,
                    segments TEXT NOT NULL,
                    created_at INTEGER NOT NULL,
                    expires_at INTEGER NOT NULL,
                    PRIMARY KEY (video_id, language)
)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating transcripts table: %v", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached transcript for the key, reporting a miss for
// absent or expired entries. Expired rows are deleted lazily here rather
// than by a background sweep.
func (s *Store) Get(ctx context.Context, videoID, language string) (*models.Transcript, bool, error) {
	var (
		source    string
		segments  string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT source, segments, expires_at FROM transcripts WHERE video_id = ? AND language = ?",
		videoID, language,
	).Scan(&source, &segments, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error querying cache: %v", err)
	}

	if time.Now().Unix() >= expiresAt {
		if err := s.Delete(ctx, videoID, language); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"video_id": videoID,
				"language": language,
			}).Warn("Failed to delete expired cache entry")
		}
		return nil, false, nil
	}

	var segs []models.TranscriptSegment
	if err := json.Unmarshal([]byte(segments), &segs); err != nil {
		return nil, false, fmt.Errorf("error decoding cached segments: %v", err)
	}

	return &models.Transcript{
		Segments: segs,
		Source:   models.TranscriptSource(source),
		Language: language,
	}, true, nil
}

// GetAny returns any live transcript for the video regardless of language.
// Acquisition may have substituted a track the caller did not ask for; the
// entry is still keyed under the substituted language, so a per-language
// probe alone would keep missing it.
func (s *Store) GetAny(ctx context.Context, videoID string) (*models.Transcript, bool, error) {
	var (
		language string
		source   string
		segments string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT language, source, segments FROM transcripts
         WHERE video_id = ? AND expires_at > ?
         ORDER BY created_at DESC LIMIT 1`,
		videoID, time.Now().Unix(),
	).Scan(&language, &source, &segments)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error querying cache: %v", err)
	}

	var segs []models.TranscriptSegment
	if err := json.Unmarshal([]byte(segments), &segs); err != nil {
		return nil, false, fmt.Errorf("error decoding cached segments: %v", err)
	}

	return &models.Transcript{
		Segments: segs,
		Source:   models.TranscriptSource(source),
		Language: language,
	}, true, nil
}

// Put stores the transcript under (videoID, language) with the given TTL.
// A concurrent Put for the same key is last-write-wins; transcripts are
// immutable once fetched so either write is valid.
func (s *Store) Put(ctx context.Context, videoID, language string, t *models.Transcript, ttl time.Duration) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("error encoding segments: %v", err)
	}

	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %v", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transcripts (video_id, language, source, segments, created_at, expires_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(video_id, language) DO UPDATE SET
             source=excluded.source,
             segments=excluded.segments,
             created_at=excluded.created_at,
             expires_at=excluded.expires_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error preparing statement: %v", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, videoID, language, string(t.Source), string(segments),
		now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error executing statement: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %v", err)
	}

	return nil
}

// Delete removes the entry for the key. Missing entries are not an error.
func (s *Store) Delete(ctx context.Context, videoID, language string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM transcripts WHERE video_id = ? AND language = ?", videoID, language)
	if err != nil {
		return fmt.Errorf("error deleting cache entry: %v", err)
	}
	return nil
}
