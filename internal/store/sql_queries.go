package store

const (
	createUser = `INSERT INTO users (uid, email, name, auth_hash)
    VALUES ($1, $2, $3, $4)
    RETURNING user_id, uid, email, name, auth_hash, encryption_key, encryption_key_recovery_code, last_login_date, created_at;`

	findUserByEmail = `SELECT user_id, uid, email, name, auth_hash, encryption_key, encryption_key_recovery_code, last_login_date, created_at
    FROM users
    WHERE email = $1;`

	findUserByID = `SELECT user_id, uid, email, name, auth_hash, encryption_key, encryption_key_recovery_code, last_login_date, created_at
    FROM users
    WHERE user_id = $1;`

	// initEscrow is guarded by "no escrow yet" so that two concurrent
	// first logins cannot both create a data key; the loser sees zero
	// affected rows and re-reads the winner's record.
	initEscrow = `UPDATE users
    SET encryption_key = $1, last_login_date = $2
    WHERE user_id = $3 AND encryption_key = '';`

	// migrateEscrow is guarded by the unmigrated condition; the persisted
	// row acts as the mutual-exclusion signal for the one-shot rewrap.
	migrateEscrow = `UPDATE users
    SET encryption_key = $1, last_login_date = $2
    WHERE user_id = $3 AND (last_login_date IS NULL OR last_login_date < $4);`

	touchLastLogin = `UPDATE users
    SET last_login_date = $1
    WHERE user_id = $2;`

	updateEscrowBoth = `UPDATE users
    SET encryption_key = $1, encryption_key_recovery_code = $2
    WHERE user_id = $3;`

	updateEscrowPassword = `UPDATE users
    SET encryption_key = $1
    WHERE user_id = $2;`

	updateEscrowRecovery = `UPDATE users
    SET encryption_key_recovery_code = $1
    WHERE user_id = $2;`

	createContact = `INSERT INTO contacts (user_id, name, description)
    VALUES ($1, $2, $3)
    RETURNING contact_id, user_id, name, description, created_at, updated_at;`

	getContact = `SELECT contact_id, user_id, name, description, created_at, updated_at
    FROM contacts
    WHERE user_id = $1 AND contact_id = $2;`

	getContacts = `SELECT contact_id, user_id, name, description, created_at, updated_at
    FROM contacts
    WHERE user_id = $1
    ORDER BY contact_id;`

	deleteContact = `DELETE FROM contacts
    WHERE user_id = $1 AND contact_id = $2;`
)
