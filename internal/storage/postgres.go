package storage

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/xaenox/tag-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresPersister stores the namespace map as rows of a single table.
// Save rewrites every row inside one transaction, which gives the same
// all-or-nothing property as the file persister's atomic rename.
type PostgresPersister struct {
	db *sql.DB
}

func NewPostgresPersister(config DatabaseConfig) (*PostgresPersister, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	persister := &PostgresPersister{db: db}

	// Initialize database schema
	if err := persister.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return persister, nil
}

func (p *PostgresPersister) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := p.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (p *PostgresPersister) Load() (map[string]map[string]models.Tag, error) {
	query := `
		SELECT location, name, content, owner_id, uses, created_at
		FROM tags`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error querying tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[string]map[string]models.Tag)
	for rows.Next() {
		var location string
		var tag models.Tag
		err := rows.Scan(
			&location,
			&tag.Name,
			&tag.Content,
			&tag.OwnerID,
			&tag.Uses,
			&tag.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning tag: %w", err)
		}

		if location != GenericLocation {
			tag.Location = location
		}

		bucket := tags[location]
		if bucket == nil {
			bucket = make(map[string]models.Tag)
			tags[location] = bucket
		}
		bucket[tag.Name] = tag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading tags: %w", err)
	}

	return tags, nil
}

func (p *PostgresPersister) Save(tags map[string]map[string]models.Tag) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tags`); err != nil {
		return fmt.Errorf("error clearing tags: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tags (location, name, content, owner_id, uses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for location, bucket := range tags {
		for name, tag := range bucket {
			if _, err := stmt.Exec(location, name, tag.Content, tag.OwnerID, tag.Uses, tag.CreatedAt); err != nil {
				return fmt.Errorf("error inserting tag %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing tags: %w", err)
	}

	return nil
}

func (p *PostgresPersister) Close() error {
	return p.db.Close()
}
