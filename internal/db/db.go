package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// Connect returns a MariaDB connection using env vars.
func Connect() (*sql.DB, error) {
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4,utf8", user, pass, host, port, name)
	return sql.Open("mysql", dsn)
}

// EnsureSchema creates required tables if not exist.
func EnsureSchema(db *sql.DB) error {
	if skip := strings.TrimSpace(os.Getenv("DB_SKIP_SCHEMA")); strings.EqualFold(skip, "true") || skip == "1" {
		log.Printf("EnsureSchema: skipped (DB_SKIP_SCHEMA=%q)", skip)
		return nil
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			is_admin TINYINT(1) NOT NULL DEFAULT 0,
			ptp CHAR(4) NULL,
			ptp_verified TINYINT(1) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	// open_marker vale 1 mientras la jornada está abierta y NULL al cerrarla.
	// Como los índices UNIQUE de MySQL ignoran los NULL, (user_id, open_marker)
	// admite a lo sumo UNA jornada abierta por usuario: dos clock-in
	// concurrentes no pueden insertar dos filas abiertas.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS attendance (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			clock_in DATETIME NOT NULL,
			clock_out DATETIME NULL,
			open_marker TINYINT AS (IF(clock_out IS NULL, 1, NULL)) STORED,
			UNIQUE KEY uniq_open_session (user_id, open_marker),
			FOREIGN KEY (user_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE INDEX idx_attendance_user_clockin ON attendance(user_id, clock_in);
	`); err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") {
			// index already exists, nothing to do
		} else if strings.Contains(errMsg, "permission denied") {
			log.Printf("EnsureSchema: unable to create attendance index (permission denied): %v", err)
		} else {
			return err
		}
	}

	return nil
}
