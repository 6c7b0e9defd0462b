// Package checkpoint persists per-document extraction progress so an
// interrupted run can resume instead of re-paying for pages already
// extracted.
package checkpoint

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	_ "modernc.org/sqlite"

	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/table"
)

// Checkpoint is one document's saved progress: every per-page table
// extracted so far and the index of the last completed page.
type Checkpoint struct {
	DocumentID    string         `json:"document_id"`
	LastPageIndex int            `json:"last_page_index"`
	Tables        []*table.Table `json:"tables"`
	SavedAt       time.Time      `json:"saved_at"`
}

// payloadSchema guards Load against stale or truncated rows. A payload
// that fails validation is corrupt, not merely old.
const payloadSchema = `{
	"type": "object",
	"required": ["document_id", "last_page_index", "tables"],
	"properties": {
		"document_id": {"type": "string", "minLength": 1},
		"last_page_index": {"type": "integer", "minimum": 1},
		"tables": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["columns", "rows", "first_page", "last_page"]
			}
		}
	}
}`

// Store keeps checkpoints in a single sqlite file, one row per document.
type Store struct {
	db     *sql.DB
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewStore opens (creating if needed) the checkpoint database under
// cfg.Dir and prepares the payload schema.
func NewStore(cfg common.CheckpointConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint dir: %w", err)
	}

	path := filepath.Join(cfg.Dir, "checkpoints.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			document_id TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint db: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("checkpoint.json", bytes.NewReader([]byte(payloadSchema))); err != nil {
		db.Close()
		return nil, fmt.Errorf("add checkpoint schema: %w", err)
	}
	schema, err := compiler.Compile("checkpoint.json")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("compile checkpoint schema: %w", err)
	}

	logger.Debug("checkpoint.store_opened", "path", path)
	return &Store{db: db, schema: schema, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the checkpoint atomically: the upsert runs in a
// transaction, so a crash mid-save leaves the previous row intact.
func (s *Store) Save(ctx context.Context, cp *Checkpoint) error {
	cp.SavedAt = time.Now().UTC()
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (document_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		cp.DocumentID, string(payload), cp.SavedAt.Format(time.RFC3339),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	s.logger.Info("checkpoint.saved",
		"document_id", cp.DocumentID,
		"last_page_index", cp.LastPageIndex,
		"tables", len(cp.Tables),
	)
	return nil
}

// Load returns the stored checkpoint for a document, or (nil, nil) when
// none exists. A row whose payload fails schema validation or JSON
// decoding returns an error wrapping ErrCheckpointCorrupt; callers
// treat that the same as no checkpoint.
func (s *Store) Load(ctx context.Context, documentID string) (*Checkpoint, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE document_id = ?`, documentID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, common.NewAppError("CHECKPOINT_CORRUPT", "checkpoint payload is not valid JSON", common.ErrCheckpointCorrupt)
	}
	if err := s.schema.Validate(raw); err != nil {
		return nil, common.NewAppError("CHECKPOINT_CORRUPT", fmt.Sprintf("checkpoint payload fails validation: %v", err), common.ErrCheckpointCorrupt)
	}

	var cp Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return nil, common.NewAppError("CHECKPOINT_CORRUPT", "checkpoint payload does not decode", common.ErrCheckpointCorrupt)
	}
	for _, t := range cp.Tables {
		if err := t.CheckRectangular(); err != nil {
			return nil, common.NewAppError("CHECKPOINT_CORRUPT", fmt.Sprintf("checkpoint table malformed: %v", err), common.ErrCheckpointCorrupt)
		}
	}

	s.logger.Info("checkpoint.loaded",
		"document_id", documentID,
		"last_page_index", cp.LastPageIndex,
		"tables", len(cp.Tables),
	)
	return &cp, nil
}

// Clear removes a document's checkpoint after a successful run.
func (s *Store) Clear(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	s.logger.Debug("checkpoint.cleared", "document_id", documentID)
	return nil
}
