package storage

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deidaraiorek/killdist/internal/dataset"
)

type ResultsDB struct {
	db *sql.DB
}

// Score is one stored row. Short and Long are NaN where no predecessor
// existed.
type Score struct {
	Position   int
	KillmailID int64
	Short      float64
	Long       float64
}

func NewResultsDB(dbPath string) (*ResultsDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	resultsDB := &ResultsDB{
		db: db,
	}

	if err := resultsDB.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return resultsDB, nil
}

func (rdb *ResultsDB) initSchema() error {
	_, err := rdb.db.Exec(Schema)
	return err
}

func (rdb *ResultsDB) Close() error {
	return rdb.db.Close()
}

// SaveRun replaces the stored distances with parts in a single transaction.
func (rdb *ResultsDB) SaveRun(parts []dataset.ScoredPartition) error {
	tx, err := rdb.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM distances"); err != nil {
		return fmt.Errorf("failed to clear distances: %w", err)
	}

	insertStmt, err := tx.Prepare(
		"INSERT INTO distances (character_id, position, killmail_id, cos_dist_st, cos_dist_lt) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer insertStmt.Close()

	rows := 0
	for _, p := range parts {
		if len(p.Short) != len(p.Records) || len(p.Long) != len(p.Records) {
			return fmt.Errorf("character %d: score count does not match %d records", p.CharacterID, len(p.Records))
		}
		for i, rec := range p.Records {
			_, err := insertStmt.Exec(p.CharacterID, i, rec.KillmailID, nullable(p.Short[i]), nullable(p.Long[i]))
			if err != nil {
				return fmt.Errorf("failed to insert distance for killmail %d: %w", rec.KillmailID, err)
			}
			rows++
		}
	}

	updateMetaStmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO run_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
	)
	if err != nil {
		return err
	}
	defer updateMetaStmt.Close()

	for key, value := range map[string]int{"total_rows": rows, "total_characters": len(parts)} {
		if _, err := updateMetaStmt.Exec(key, strconv.Itoa(value)); err != nil {
			return fmt.Errorf("failed to update %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (rdb *ResultsDB) ScoresForCharacter(characterID int64) ([]Score, error) {
	rows, err := rdb.db.Query(
		"SELECT position, killmail_id, cos_dist_st, cos_dist_lt FROM distances WHERE character_id = ? ORDER BY position",
		characterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var s Score
		var short, long sql.NullFloat64
		if err := rows.Scan(&s.Position, &s.KillmailID, &short, &long); err != nil {
			return nil, err
		}
		s.Short, s.Long = math.NaN(), math.NaN()
		if short.Valid {
			s.Short = short.Float64
		}
		if long.Valid {
			s.Long = long.Float64
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (rdb *ResultsDB) GetRowCount() (int, error) {
	var count int
	err := rdb.db.QueryRow("SELECT COUNT(*) FROM distances").Scan(&count)
	return count, err
}

func (rdb *ResultsDB) SetMetadata(key, value string) error {
	_, err := rdb.db.Exec(
		"INSERT OR REPLACE INTO run_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		key, value,
	)
	return err
}

func (rdb *ResultsDB) GetMetadata(key string) (string, error) {
	var value string
	err := rdb.db.QueryRow(
		"SELECT value FROM run_metadata WHERE key = ?",
		key,
	).Scan(&value)
	return value, err
}
