package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound     = errors.New("checkpoint not found")
	ErrCheckpointCorrupted    = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists       = errors.New("checkpoint already exists")
	ErrCheckpointIncompatible = errors.New("checkpoint schema is newer than this binary")
	ErrInvalidCheckpointTag   = errors.New("invalid checkpoint tag")
)

const (
	checkpointExt = ".db"
	metadataExt   = ".meta.json"

	// maxAutoCheckpoints is how many automatic checkpoints survive pruning.
	maxAutoCheckpoints = 5
)

// CheckpointInfo describes a snapshot of the ledger database.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Participants  int
	Accounts      int
	Movements     int
	SchemaVersion int
	IsAuto        bool
}

// checkpointMeta is the sidecar file written next to each snapshot.
type checkpointMeta struct {
	CreatedAt     time.Time      `json:"created_at"`
	Records       map[string]int `json:"records"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

func (m checkpointMeta) info() CheckpointInfo {
	return CheckpointInfo{
		CreatedAt:     m.CreatedAt,
		ID:            m.ID,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Participants:  m.Records[string(service.TableParticipants)],
		Accounts:      m.Records[string(service.TableAccounts)],
		Movements:     m.Records[string(service.TableMovements)],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

// CheckpointManager snapshots and restores the ledger database. Snapshots live
// in a checkpoints directory beside the database file.
type CheckpointManager struct {
	db     *sql.DB
	now    func() time.Time
	dbPath string
	dir    string
}

// NewCheckpointManager creates a manager for the database at dbPath.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	if dbPath == ":memory:" {
		return nil, errors.New("checkpoints need a database file")
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dir := filepath.Join(filepath.Dir(abs), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{db: db, now: time.Now, dbPath: abs, dir: dir}, nil
}

func (cm *CheckpointManager) snapshotPath(id string) string {
	return filepath.Join(cm.dir, id+checkpointExt)
}

func (cm *CheckpointManager) metaPath(id string) string {
	return filepath.Join(cm.dir, id+metadataExt)
}

func validTag(tag string) error {
	if tag == "" || strings.ContainsAny(tag, `/\`) || strings.Contains(tag, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidCheckpointTag, tag)
	}
	return nil
}

// Create snapshots the database under tag. An empty tag is named after the
// current minute.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + cm.now().Format("2006-01-02-1504")
	}
	return cm.create(ctx, tag, description, false)
}

// AutoCheckpoint snapshots the database before a destructive operation and
// prunes the oldest automatic snapshots.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) error {
	stamp := strings.ReplaceAll(cm.now().Format("2006-01-02-150405.000"), ".", "-")
	tag := fmt.Sprintf("auto-%s-%s", prefix, stamp)
	if _, err := cm.create(ctx, tag, "Automatic checkpoint before "+prefix, true); err != nil {
		return fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}
	cm.pruneAuto(ctx)
	return nil
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if err := validTag(tag); err != nil {
		return nil, err
	}
	path := cm.snapshotPath(tag)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointExists, tag)
	}

	var version int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	records, err := cm.countRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if err := cm.snapshot(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	meta := checkpointMeta{
		CreatedAt:     cm.now(),
		Records:       records,
		ID:            tag,
		Description:   description,
		FileSize:      stat.Size(),
		SchemaVersion: version,
		IsAuto:        auto,
	}
	if err := writeMeta(cm.metaPath(tag), meta); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to save checkpoint metadata: %w", err)
	}
	// The sidecar file is authoritative; the table only mirrors it.
	if err := cm.recordMeta(ctx, meta); err != nil {
		common.LogError(ctx, err, "Failed to mirror checkpoint metadata", common.Fields{"checkpoint": tag})
	}

	common.LogInfo(ctx, "Created checkpoint", common.Fields{
		"checkpoint": tag,
		"auto":       auto,
		"movements":  meta.Records[string(service.TableMovements)],
	})
	info := meta.info()
	return &info, nil
}

// List returns every readable checkpoint, newest first.
func (cm *CheckpointManager) List(ctx context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}
	var out []CheckpointInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metadataExt) {
			continue
		}
		meta, err := readMeta(filepath.Join(cm.dir, e.Name()))
		if err != nil {
			common.LogDebug(ctx, "Skipping unreadable checkpoint metadata", common.Fields{"file": e.Name()})
			continue
		}
		out = append(out, meta.info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetCheckpointInfo returns the metadata of one checkpoint.
func (cm *CheckpointManager) GetCheckpointInfo(_ context.Context, id string) (*CheckpointInfo, error) {
	if err := validTag(id); err != nil {
		return nil, err
	}
	meta, err := readMeta(cm.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
		}
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	info := meta.info()
	return &info, nil
}

// Restore replaces the database with the checkpoint. The manager's database
// handle is closed; callers must reopen storage afterwards.
func (cm *CheckpointManager) Restore(ctx context.Context, id string) error {
	info, err := cm.GetCheckpointInfo(ctx, id)
	if err != nil {
		return err
	}
	if info.SchemaVersion > ExpectedSchemaVersion {
		return fmt.Errorf("%w: version %d, expected at most %d", ErrCheckpointIncompatible, info.SchemaVersion, ExpectedSchemaVersion)
	}
	path := cm.snapshotPath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if err := checkIntegrity(ctx, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCheckpointCorrupted, id, err)
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	previous := cm.dbPath + ".before-restore"
	if err := copyFile(cm.dbPath, previous); err != nil {
		return fmt.Errorf("failed to keep current database: %w", err)
	}
	if err := copyFile(path, cm.dbPath); err != nil {
		if rollbackErr := copyFile(previous, cm.dbPath); rollbackErr != nil {
			common.LogError(ctx, rollbackErr, "Failed to put back the database after a failed restore", common.Fields{"backup": previous})
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	_ = os.Remove(previous)

	common.LogInfo(ctx, "Restored checkpoint", common.Fields{"checkpoint": id, "movements": info.Movements})
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(ctx context.Context, id string) error {
	if err := validTag(id); err != nil {
		return err
	}
	if err := os.Remove(cm.snapshotPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
		}
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	if err := os.Remove(cm.metaPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		common.LogDebug(ctx, "Failed to remove checkpoint metadata", common.Fields{"checkpoint": id, "error": err.Error()})
	}
	if _, err := cm.db.ExecContext(ctx, "DELETE FROM checkpoint_metadata WHERE id = ?", id); err != nil {
		common.LogDebug(ctx, "Failed to remove mirrored checkpoint metadata", common.Fields{"checkpoint": id, "error": err.Error()})
	}
	return nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) {
	all, err := cm.List(ctx)
	if err != nil {
		common.LogError(ctx, err, "Failed to list checkpoints for pruning", nil)
		return
	}
	kept := 0
	for _, cp := range all {
		if !cp.IsAuto {
			continue
		}
		kept++
		if kept <= maxAutoCheckpoints {
			continue
		}
		if err := cm.Delete(ctx, cp.ID); err != nil {
			common.LogError(ctx, err, "Failed to prune auto-checkpoint", common.Fields{"checkpoint": cp.ID})
		}
	}
}

// countRecords counts records per table, reporting every table even when empty.
func (cm *CheckpointManager) countRecords(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(service.AllTables))
	for _, name := range service.AllTables {
		counts[string(name)] = 0
	}
	rows, err := cm.db.QueryContext(ctx, "SELECT table_name, COUNT(*) FROM records GROUP BY table_name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var table string
		var n int
		if err := rows.Scan(&table, &n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, rows.Err()
}

// snapshot writes a consistent copy of the live database with VACUUM INTO.
func (cm *CheckpointManager) snapshot(ctx context.Context, dest string) error {
	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	quoted := "'" + strings.ReplaceAll(dest, "'", "''") + "'"
	// #nosec G202 - dest is a manager-built path, quoted as an SQL literal
	if _, err := cm.db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return err
	}
	return nil
}

func (cm *CheckpointManager) recordMeta(ctx context.Context, meta checkpointMeta) error {
	records, err := json.Marshal(meta.Records)
	if err != nil {
		return err
	}
	_, err = cm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoint_metadata
		(id, created_at, description, file_size, row_counts, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.CreatedAt, meta.Description, meta.FileSize, string(records), meta.SchemaVersion, meta.IsAuto,
	)
	return err
}

func writeMeta(path string, meta checkpointMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readMeta(path string) (*checkpointMeta, error) {
	// #nosec G304 - path is built from a validated tag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta checkpointMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return errors.New(result)
	}
	return nil
}

// copyFile copies src over dst through a temporary file and a rename.
func copyFile(src, dst string) (err error) {
	// #nosec G304 - both paths come from the manager
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
