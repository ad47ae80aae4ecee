package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for every table the service owns. Statements
// use IF NOT EXISTS so EnsureSchema is safe to run on every boot.
// The unique indexes on guest_passes.access_code,
// tables.table_number and entry_logs.request_id are load-bearing:
// the repositories rely on them to resolve concurrent races.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(16)     NOT NULL DEFAULT 'STAFF',
		is_active     TINYINT(1)      NOT NULL DEFAULT 1,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tables (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		table_number   INT UNSIGNED    NOT NULL,
		capacity       INT UNSIGNED    NOT NULL,
		occupied_seats INT UNSIGNED    NOT NULL DEFAULT 0,
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tables_number (table_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS guest_passes (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		access_code   CHAR(4)         NOT NULL,
		family_name   VARCHAR(255)    NOT NULL,
		party_size    INT UNSIGNED    NOT NULL,
		entered_count INT UNSIGNED    NOT NULL DEFAULT 0,
		table_id      BIGINT UNSIGNED NULL,
		phone         VARCHAR(32)     NULL,
		confirmed     TINYINT(1)      NOT NULL DEFAULT 0,
		confirmed_at  DATETIME        NULL,
		completed     TINYINT(1)      NOT NULL DEFAULT 0,
		created_by    BIGINT UNSIGNED NOT NULL,
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_guest_passes_code (access_code),
		KEY idx_guest_passes_table (table_id),
		KEY idx_guest_passes_creator (created_by),
		CONSTRAINT fk_guest_passes_table FOREIGN KEY (table_id) REFERENCES tables (id) ON DELETE SET NULL,
		CONSTRAINT fk_guest_passes_creator FOREIGN KEY (created_by) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS entry_logs (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		guest_pass_id  BIGINT UNSIGNED NOT NULL,
		count_entering INT UNSIGNED    NOT NULL,
		request_id     CHAR(36)        NOT NULL,
		recorded_by    BIGINT UNSIGNED NOT NULL,
		recorded_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_entry_logs_request (request_id),
		KEY idx_entry_logs_pass (guest_pass_id),
		CONSTRAINT fk_entry_logs_pass FOREIGN KEY (guest_pass_id) REFERENCES guest_passes (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS invitation_downloads (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		guest_pass_id BIGINT UNSIGNED NOT NULL,
		downloaded_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_invitation_downloads_pass (guest_pass_id),
		CONSTRAINT fk_invitation_downloads_pass FOREIGN KEY (guest_pass_id) REFERENCES guest_passes (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS event_config (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		total_tables    INT UNSIGNED    NOT NULL,
		seats_per_table INT UNSIGNED    NOT NULL,
		updated_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables. It runs at startup and
// at the beginning of integration tests.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
