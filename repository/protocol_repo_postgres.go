package repository

import "database/sql"

func NewPostgresProtocolRepo(db *sql.DB) *SQLProtocolRepo {
	return &SQLProtocolRepo{DB: db, q: postgresQueries}
}

var postgresQueries = sqlQueries{
	saveDraft: `
		INSERT INTO protocol_draft (slot, document, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET document = EXCLUDED.document, saved_at = EXCLUDED.saved_at
	`,
	loadDraft:   `SELECT document FROM protocol_draft WHERE slot = $1`,
	deleteDraft: `DELETE FROM protocol_draft WHERE slot = $1`,
	upsert: `
		INSERT INTO protocol_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			address = EXCLUDED.address,
			party_summary = EXCLUDED.party_summary,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			completed_at = CASE WHEN EXCLUDED.status = 'completed'
				THEN COALESCE(protocol_history.completed_at, EXCLUDED.completed_at)
				ELSE NULL END,
			artifact_ref = COALESCE(EXCLUDED.artifact_ref, protocol_history.artifact_ref),
			document = EXCLUDED.document
		WHERE protocol_history.status <> 'completed' OR EXCLUDED.status = 'completed'
	`,
	list:   `SELECT ` + historyColumns + ` FROM protocol_history ORDER BY updated_at DESC, id`,
	get:    `SELECT ` + historyColumns + ` FROM protocol_history WHERE id = $1`,
	delete: `DELETE FROM protocol_history WHERE id = $1`,
}
