package repository

import "database/sql"

func NewSQLiteProtocolRepo(db *sql.DB) *SQLProtocolRepo {
	return &SQLProtocolRepo{DB: db, q: sqliteQueries}
}

var sqliteQueries = sqlQueries{
	saveDraft: `
		INSERT INTO protocol_draft (slot, document, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at
	`,
	loadDraft:   `SELECT document FROM protocol_draft WHERE slot = ?`,
	deleteDraft: `DELETE FROM protocol_draft WHERE slot = ?`,
	upsert: `
		INSERT INTO protocol_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			address = excluded.address,
			party_summary = excluded.party_summary,
			status = excluded.status,
			updated_at = excluded.updated_at,
			completed_at = CASE WHEN excluded.status = 'completed'
				THEN COALESCE(protocol_history.completed_at, excluded.completed_at)
				ELSE NULL END,
			artifact_ref = COALESCE(excluded.artifact_ref, protocol_history.artifact_ref),
			document = excluded.document
		WHERE protocol_history.status <> 'completed' OR excluded.status = 'completed'
	`,
	list:   `SELECT ` + historyColumns + ` FROM protocol_history ORDER BY updated_at DESC, id`,
	get:    `SELECT ` + historyColumns + ` FROM protocol_history WHERE id = ?`,
	delete: `DELETE FROM protocol_history WHERE id = ?`,
}
