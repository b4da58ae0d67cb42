package mysql

import "database/sql"

// schema contains the DDL statements bootstrapped on startup. Statements
// are idempotent so repeated starts against the same database are safe.
// bills_users carries the unique index on (bill_id, user_id): a registered
// user gets at most one seat per bill, while guests (NULL user_id) can
// repeat freely because MySQL unique indexes ignore NULLs.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		telegram_id BIGINT NOT NULL,
		username VARCHAR(255) NOT NULL DEFAULT '',
		avatar_url VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_telegram_id (telegram_id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bills (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		total_sum BIGINT NOT NULL,
		unallocated_sum BIGINT NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		payment_details VARCHAR(512) NOT NULL DEFAULT '',
		split_mode ENUM('manual','equally') NOT NULL DEFAULT 'manual',
		status ENUM('open','paid','closed') NOT NULL DEFAULT 'open',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY ix_bills_owner_id (owner_id),
		CONSTRAINT fk_bills_owner FOREIGN KEY (owner_id) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bill_items (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		bill_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		price BIGINT NOT NULL DEFAULT 0,
		count BIGINT NOT NULL DEFAULT 1,
		item_sum BIGINT NOT NULL DEFAULT 0,
		assigned_to_user_id BIGINT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY ix_bill_items_bill_id (bill_id),
		CONSTRAINT fk_items_bill FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE,
		CONSTRAINT fk_items_assignee FOREIGN KEY (assigned_to_user_id) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bills_users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		bill_id BIGINT NOT NULL,
		user_id BIGINT NULL,
		guest_name VARCHAR(255) NOT NULL DEFAULT '',
		allocated_amount BIGINT NOT NULL DEFAULT 0,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_bill_user (bill_id, user_id),
		KEY ix_bills_users_user_id (user_id),
		CONSTRAINT fk_seats_bill FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE,
		CONSTRAINT fk_seats_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB`,
}

// bootstrap executes the schema statements one by one.
func bootstrap(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
