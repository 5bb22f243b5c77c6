package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"solpipe/internal"
)

const dateLayout = "2006-01-02"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS masterfile (
  position INTEGER PRIMARY KEY,
  stage TEXT NOT NULL DEFAULT '',
  solution_resource TEXT NOT NULL DEFAULT '',
  account_name TEXT NOT NULL DEFAULT '',
  owner_role TEXT NOT NULL DEFAULT '',
  opportunity_name TEXT NOT NULL DEFAULT '',
  opportunity_owner TEXT NOT NULL DEFAULT '',
  main_primary_service TEXT NOT NULL DEFAULT '',
  opportunity_par TEXT NOT NULL DEFAULT '0',
  stage_duration INTEGER NOT NULL DEFAULT 0,
  close_date TEXT,
  notes TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'Unassigned',
  received_by_solutions TEXT,
  closed_by_solutions TEXT,
  product TEXT NOT NULL DEFAULT 'unclassified',
  solutions_notes TEXT NOT NULL DEFAULT '',
  tasks TEXT NOT NULL DEFAULT '',
  action_items TEXT NOT NULL DEFAULT '',
  comments_results TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_masterfile_name ON masterfile(opportunity_name);

CREATE TABLE IF NOT EXISTS merge_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  source TEXT NOT NULL,
  statsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceMasterfile swaps the persisted dataset for the supplied one in a
// single transaction. The core is single-writer (one session at a time), so
// a whole-file replace after each merge keeps positions dense with no
// version bookkeeping.
func (d *DB) ReplaceMasterfile(records []internal.Opportunity) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM masterfile`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO masterfile (
  position, stage, solution_resource, account_name, owner_role,
  opportunity_name, opportunity_owner, main_primary_service,
  opportunity_par, stage_duration, close_date, notes, status,
  received_by_solutions, closed_by_solutions, product,
  solutions_notes, tasks, action_items, comments_results
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range records {
		if _, err := stmt.Exec(
			i, o.Stage, o.SolutionResource, o.AccountName, o.OwnerRole,
			o.Name, o.Owner, o.MainPrimaryService,
			o.PAR.String(), o.StageDuration, dateToDB(o.CloseDate), o.Notes, o.Status,
			dateToDB(o.ReceivedBySolutions), dateToDB(o.ClosedBySolutions), o.Product,
			o.SolutionsNotes, o.Tasks, o.ActionItems, o.CommentsResults,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadMasterfile returns the persisted dataset in position order.
func (d *DB) LoadMasterfile() ([]internal.Opportunity, error) {
	rows, err := d.conn.Query(`
SELECT stage, solution_resource, account_name, owner_role,
       opportunity_name, opportunity_owner, main_primary_service,
       opportunity_par, stage_duration, close_date, notes, status,
       received_by_solutions, closed_by_solutions, product,
       solutions_notes, tasks, action_items, comments_results
FROM masterfile ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Opportunity
	for rows.Next() {
		var o internal.Opportunity
		var par string
		var closeDate, received, closed sql.NullString
		if err := rows.Scan(
			&o.Stage, &o.SolutionResource, &o.AccountName, &o.OwnerRole,
			&o.Name, &o.Owner, &o.MainPrimaryService,
			&par, &o.StageDuration, &closeDate, &o.Notes, &o.Status,
			&received, &closed, &o.Product,
			&o.SolutionsNotes, &o.Tasks, &o.ActionItems, &o.CommentsResults,
		); err != nil {
			return nil, err
		}
		if parsed, err := decimal.NewFromString(par); err == nil {
			o.PAR = parsed
		} else {
			o.PAR = decimal.Zero
		}
		o.CloseDate = dateFromDB(closeDate)
		o.ReceivedBySolutions = dateFromDB(received)
		o.ClosedBySolutions = dateFromDB(closed)
		out = append(out, o)
	}

	return out, rows.Err()
}

// UpdateTeamField edits one team-authored cell by opportunity name. This is
// the only mutation path for team columns; merges never touch them.
func (d *DB) UpdateTeamField(opportunityName, column, value string) error {
	dbCol, ok := map[string]string{
		internal.ColSolutionsNotes:  "solutions_notes",
		internal.ColTasks:           "tasks",
		internal.ColActionItems:     "action_items",
		internal.ColCommentsResults: "comments_results",
	}[column]
	if !ok {
		return fmt.Errorf("not a team-authored column: %s", column)
	}

	res, err := d.conn.Exec(
		`UPDATE masterfile SET `+dbCol+` = ? WHERE opportunity_name = ?`,
		value, opportunityName,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("opportunity not found: %s", opportunityName)
	}
	return nil
}

func (d *DB) InsertMergeRun(traceID, source string, stats internal.MergeStats) error {
	statsJSON, _ := json.Marshal(stats)
	_, err := d.conn.Exec(
		`INSERT INTO merge_runs (traceId, source, statsJson) VALUES (?, ?, ?)`,
		traceID, source, string(statsJSON),
	)
	return err
}

func (d *DB) ListMergeRuns(limit int) ([]internal.MergeRun, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, source, statsJson, createdAt
FROM merge_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MergeRun
	for rows.Next() {
		var run internal.MergeRun
		var statsJSON string
		if err := rows.Scan(&run.ID, &run.TraceID, &run.Source, &statsJSON, &run.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(statsJSON), &run.Stats)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func dateToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func dateFromDB(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}
