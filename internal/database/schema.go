package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the idempotent DDL executed at startup.  The UNIQUE keys on
// (session_time, exam_date) in both capacity tables are load-bearing: they
// are the row-lock target that serialises concurrent reservations and the
// guard that makes lazy row creation safe under concurrent first touch.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id         VARCHAR(64)  NOT NULL PRIMARY KEY,
        email      VARCHAR(255) NOT NULL,
        full_name  VARCHAR(255) NOT NULL,
        created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS session_capacity (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        session_time  ENUM('MORNING','AFTERNOON') NOT NULL,
        exam_date     DATE NOT NULL,
        current_count INT  NOT NULL DEFAULT 0,
        max_capacity  INT  NOT NULL DEFAULT 300,
        UNIQUE KEY uq_session_capacity_slot (session_time, exam_date),
        CONSTRAINT chk_session_capacity_bounds CHECK (current_count >= 0 AND current_count <= max_capacity)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS capacity_status (
        id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        session_time        ENUM('MORNING','AFTERNOON') NOT NULL,
        exam_date           DATE NOT NULL,
        total_count         INT  NOT NULL DEFAULT 0,
        free_count          INT  NOT NULL DEFAULT 0,
        advanced_count      INT  NOT NULL DEFAULT 0,
        max_capacity        INT  NOT NULL DEFAULT 300,
        free_limit          INT  NOT NULL DEFAULT 150,
        availability_status ENUM('AVAILABLE','LIMITED','FULL','CLOSED') NOT NULL DEFAULT 'AVAILABLE',
        last_updated        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_capacity_status_slot (session_time, exam_date),
        CONSTRAINT chk_capacity_status_tiers CHECK (
            free_count >= 0 AND advanced_count >= 0
            AND free_count + advanced_count = total_count
            AND free_count <= free_limit
            AND total_count <= max_capacity
        )
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS registrations (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        exam_code    VARCHAR(32) NOT NULL,
        user_id      VARCHAR(64) NOT NULL,
        package_type ENUM('FREE','ADVANCED') NOT NULL,
        session_time ENUM('MORNING','AFTERNOON') NOT NULL,
        exam_date    DATE NOT NULL,
        payment_ref  VARCHAR(128) NULL,
        created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE KEY uq_registrations_code (exam_code),
        KEY idx_registrations_user (user_id),
        KEY idx_registrations_date (exam_date)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  Statements are idempotent, so
// running it on every startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
