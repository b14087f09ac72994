package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per completed calibration
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			baseline TEXT NOT NULL,
			thresholds TEXT NOT NULL,
			samples INTEGER NOT NULL,
			rejected INTEGER NOT NULL DEFAULT 0,
			confusion_policy TEXT NOT NULL,
			smile_suppression INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Transitions table - resolved state changes within a session
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			fatigue REAL NOT NULL DEFAULT 0,
			confusion REAL NOT NULL DEFAULT 0,
			joy REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Actions table - plugin actions to run when a state is entered
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL CHECK(state IN ('NORMAL', 'HAPPY', 'CONFUSED', 'SLEEPY')),
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_transitions_session_id ON transitions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_state ON actions(state)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
