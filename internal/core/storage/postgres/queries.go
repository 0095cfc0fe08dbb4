package postgres

// SQL queries for activity storage and windowed archive reads

const (
	// querySaveActivity inserts an activity with per-subject idempotency.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveActivity = `
		INSERT INTO activities (
			id, subject_id, kind, title, value, order_date, ingested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id, id) DO NOTHING
		RETURNING ingest_seq
	`

	// queryFetchRange serves one archive window: order_date in [$1, $2).
	// An empty or NULL subject array disables the subject filter.
	// Rows come back newest first; ingest_seq keeps ties in arrival order.
	queryFetchRange = `
		SELECT
			id, subject_id, kind, title, value, order_date
		FROM activities
		WHERE order_date >= $1
		  AND order_date < $2
		  AND ($3::bigint[] IS NULL
		       OR cardinality($3::bigint[]) = 0
		       OR subject_id = ANY($3::bigint[]))
		ORDER BY order_date DESC, ingest_seq ASC
	`

	// queryListActivities pages backwards through one subject's activities.
	queryListActivities = `
		SELECT
			id, subject_id, kind, title, value, order_date
		FROM activities
		WHERE subject_id = $1
		  AND order_date < $2
		ORDER BY order_date DESC, ingest_seq ASC
		LIMIT $3
	`
)
