package store

const (
	insertRecord = `
		INSERT INTO records (
			collection,
			server_key,
			payload,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?);`

	updateRecord = `
		UPDATE records SET
			server_key = ?,
			payload    = ?,
			updated_at = ?
		WHERE collection = ? AND local_key = ?;`

	selectRecordColumns = `
		SELECT
			local_key,
			collection,
			server_key,
			payload,
			created_at,
			updated_at
		FROM records`

	deleteRecord = `
		DELETE FROM records
		WHERE collection = ? AND local_key = ?;`

	deleteRecordIndexRows = `
		DELETE FROM record_index
		WHERE collection = ? AND local_key = ?;`

	insertRecordIndexRow = `
		INSERT INTO record_index (collection, index_name, value, local_key)
		VALUES (?, ?, ?, ?);`

	setRecordServerKey = `
		UPDATE records SET
			server_key = ?
		WHERE collection = ? AND local_key = ?;`

	insertQueueEntry = `
		INSERT INTO mutation_queue (
			collection,
			operation,
			local_key,
			server_key,
			payload,
			idempotency_key,
			attempt_count,
			status,
			last_error,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	selectQueueColumns = `
		SELECT
			entry_id,
			collection,
			operation,
			local_key,
			server_key,
			payload,
			idempotency_key,
			attempt_count,
			status,
			last_error,
			created_at
		FROM mutation_queue`

	markQueueStatus = `
		UPDATE mutation_queue SET
			status     = ?,
			last_error = ?
		WHERE entry_id = ?;`

	incrementQueueAttempt = `
		UPDATE mutation_queue
		SET attempt_count = attempt_count + 1
		WHERE entry_id = ?;`

	selectQueueAttempt = `
		SELECT attempt_count
		FROM mutation_queue
		WHERE entry_id = ?;`

	purgeDoneEntries = `
		DELETE FROM mutation_queue
		WHERE status = 'DONE';`

	requeueInFlightEntries = `
		UPDATE mutation_queue
		SET status = 'PENDING'
		WHERE status = 'IN_FLIGHT';`

	upsertMetaValue = `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`

	selectMetaValue = `
		SELECT value
		FROM sync_meta
		WHERE key = ?;`
)
