package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// PostgresStore handles user and catalog persistence in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist. Username, email, and phone
// carry UNIQUE constraints so concurrent check-then-create registrations
// cannot slip past the validator's uniqueness checks.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(50)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			first_name VARCHAR(50)  NOT NULL DEFAULT '',
			last_name  VARCHAR(50)  NOT NULL DEFAULT '',
			phone      VARCHAR(20)  UNIQUE,
			address    VARCHAR(150) NOT NULL DEFAULT '',
			avatar_key VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ  DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id   SERIAL PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id          SERIAL PRIMARY KEY,
			name        VARCHAR(150) NOT NULL,
			slug        VARCHAR(150) UNIQUE NOT NULL,
			price       NUMERIC(12,2) NOT NULL DEFAULT 0,
			available   BOOLEAN NOT NULL DEFAULT TRUE,
			category_id INTEGER REFERENCES categories(id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Seed fills an empty catalog with a starter set. The service has no admin
// surface, so products have to come from somewhere on first boot.
func (s *PostgresStore) Seed(ctx context.Context) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (name) VALUES ('Electronics'), ('Books'), ('Home')
		ON CONFLICT (name) DO NOTHING`)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO products (name, slug, price, available, category_id)
		SELECT v.name, v.slug, v.price, v.available, c.id
		FROM (VALUES
			('Wireless Mouse', 'wireless-mouse', 19.90, TRUE,  'Electronics'),
			('USB-C Charger',  'usb-c-charger',  24.50, TRUE,  'Electronics'),
			('Desk Lamp',      'desk-lamp',      32.00, TRUE,  'Home'),
			('Tea Kettle',     'tea-kettle',     28.70, FALSE, 'Home'),
			('Go Cookbook',    'go-cookbook',    41.00, TRUE,  'Books')
		) AS v(name, slug, price, available, category)
		JOIN categories c ON c.name = v.category
		ON CONFLICT (slug) DO NOTHING`)
	return err
}

// ── users ────────────────────────────────────────────────

const userColumns = `id, username, email, password, first_name, last_name,
	COALESCE(phone, ''), address, avatar_key, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName,
		&u.LastName, &u.Phone, &u.Address, &u.AvatarKey, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. The password must already be hashed.
// An empty phone is stored as NULL so the UNIQUE constraint ignores it.
func (s *PostgresStore) CreateUser(ctx context.Context, f models.RegisterForm, hashedPassword string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password, phone, address)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 RETURNING `+userColumns,
		f.Username, f.Email, hashedPassword, f.Phone, f.Address,
	))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns (nil, nil) when no user matches.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// GetUserByID returns (nil, nil) when no user matches.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateContact overwrites the contact fields of the given user. The handler
// merges the submitted form with the stored record first, so unsupplied
// fields arrive here unchanged.
func (s *PostgresStore) UpdateContact(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET email = $2, phone = NULLIF($3, ''), first_name = $4,
		 last_name = $5, address = $6 WHERE id = $1`,
		u.ID, u.Email, u.Phone, u.FirstName, u.LastName, u.Address)
	return err
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $2 WHERE id = $1`, id, hashedPassword)
	return err
}

func (s *PostgresStore) UpdateAvatar(ctx context.Context, id, avatarKey string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET avatar_key = $2 WHERE id = $1`, id, avatarKey)
	return err
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

// EmailTakenByOther reports whether any user other than excludeID holds the email.
func (s *PostgresStore) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID)
}

// PhoneTakenByOther reports whether any user other than excludeID holds the phone.
func (s *PostgresStore) PhoneTakenByOther(ctx context.Context, phone, excludeID string) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1 AND id <> $2)`, phone, excludeID)
}

// ── catalog ──────────────────────────────────────────────

func (s *PostgresStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *PostgresStore) ListAvailableProducts(ctx context.Context, limit int) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, price, available, COALESCE(category_id, 0)
		 FROM products WHERE available ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Available, &p.CategoryID); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProductBySlug returns (nil, nil) when no product matches.
func (s *PostgresStore) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, price, available, COALESCE(category_id, 0)
		 FROM products WHERE slug = $1`, slug,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Available, &p.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
