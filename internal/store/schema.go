package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		login_id TEXT NOT NULL,
		name TEXT,
		password_hash TEXT NOT NULL,
		UNIQUE (company_id, login_id)
	)`,
	`CREATE TABLE IF NOT EXISTS machines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		name TEXT NOT NULL,
		type TEXT,
		location TEXT,
		status TEXT,
		rated_capacity INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		machine_id INTEGER NOT NULL REFERENCES machines(id),
		name TEXT NOT NULL,
		unit TEXT,
		min_threshold REAL,
		max_threshold REAL
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id INTEGER NOT NULL REFERENCES sensors(id),
		value REAL,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		machine_id INTEGER NOT NULL REFERENCES machines(id),
		severity TEXT NOT NULL,
		message TEXT,
		raised_at TIMESTAMP NOT NULL,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		acknowledged_by TEXT,
		acknowledged_at TIMESTAMP,
		comment TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		machine_id INTEGER NOT NULL REFERENCES machines(id),
		description TEXT,
		priority TEXT NOT NULL DEFAULT 'medium',
		technician TEXT,
		scheduled_date TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_machines_company ON machines(company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sensors_machine ON sensors(machine_id)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_sensor_time ON sensor_readings(sensor_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_company_time ON alerts(company_id, raised_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_company ON maintenance_tasks(company_id, status)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		company_id BIGINT NOT NULL,
		login_id VARCHAR(128) NOT NULL,
		name VARCHAR(255),
		password_hash VARCHAR(255) NOT NULL,
		UNIQUE KEY uq_users_login (company_id, login_id)
	)`,
	`CREATE TABLE IF NOT EXISTS machines (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		company_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(128),
		location VARCHAR(255),
		status VARCHAR(32),
		rated_capacity INT NOT NULL DEFAULT 0,
		INDEX idx_machines_company (company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		machine_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		unit VARCHAR(32),
		min_threshold DOUBLE,
		max_threshold DOUBLE,
		INDEX idx_sensors_machine (machine_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		sensor_id BIGINT NOT NULL,
		value DOUBLE,
		recorded_at DATETIME NOT NULL,
		INDEX idx_readings_sensor_time (sensor_id, recorded_at)
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		company_id BIGINT NOT NULL,
		machine_id BIGINT NOT NULL,
		severity VARCHAR(16) NOT NULL,
		message TEXT,
		raised_at DATETIME NOT NULL,
		acknowledged TINYINT(1) NOT NULL DEFAULT 0,
		acknowledged_by VARCHAR(128),
		acknowledged_at DATETIME NULL,
		comment TEXT,
		INDEX idx_alerts_company_time (company_id, raised_at)
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_tasks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		company_id BIGINT NOT NULL,
		machine_id BIGINT NOT NULL,
		description TEXT,
		priority VARCHAR(16) NOT NULL DEFAULT 'medium',
		technician VARCHAR(128),
		scheduled_date VARCHAR(10),
		status VARCHAR(16) NOT NULL DEFAULT 'open',
		created_at DATETIME NOT NULL,
		completed_at DATETIME NULL,
		INDEX idx_tasks_company (company_id, status)
	)`,
}
