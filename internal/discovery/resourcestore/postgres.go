// internal/discovery/resourcestore/postgres.go
package resourcestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"resource-discovery/internal/models"

	"github.com/lib/pq"
)

const resourceColumns = `id, name, COALESCE(organization, ''), COALESCE(type, ''), COALESCE(description, ''),
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''), COALESCE(city, ''), COALESCE(county, ''),
	COALESCE(verified, false), COALESCE(justice_friendly, false)`

// PostgresStore reads the resources table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]models.Resource, error) {
	var (
		where []string
		args  []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.TypeLike) > 0 {
		where = append(where, "type ILIKE ANY("+next(pq.Array(likePatterns(filter.TypeLike)))+")")
	}
	if filter.VerifiedOnly {
		where = append(where, "verified = true")
	}
	if filter.Location != "" {
		p := next(likePattern(filter.Location))
		where = append(where, "(city ILIKE "+p+" OR county ILIKE "+p+")")
	}
	if filter.County != "" {
		where = append(where, "county ILIKE "+next(likePattern(filter.County)))
	}

	query := "SELECT " + resourceColumns + " FROM resources"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY verified DESC, name ASC LIMIT " + next(limitOrDefault(filter.Limit))

	return s.query(ctx, query, args...)
}

func (s *PostgresStore) SearchKeywords(ctx context.Context, kq KeywordQuery) ([]models.Resource, error) {
	var (
		where []string
		args  []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(kq.Terms) > 0 {
		p := next(pq.Array(likePatterns(kq.Terms)))
		where = append(where, "(name ILIKE ANY("+p+") OR description ILIKE ANY("+p+") OR type ILIKE ANY("+p+"))")
	}
	if kq.Location != "" {
		p := next(likePattern(kq.Location))
		where = append(where, "(city ILIKE "+p+" OR county ILIKE "+p+")")
	}

	query := "SELECT " + resourceColumns + " FROM resources"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY verified DESC, name ASC LIMIT " + next(limitOrDefault(kq.Limit))

	return s.query(ctx, query, args...)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Resource, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Organization, &r.Type, &r.Description,
			&r.Phone, &r.Email, &r.Website, &r.City, &r.County,
			&r.Verified, &r.JusticeFriendly,
		); err != nil {
			return nil, fmt.Errorf("%w: scan resource: %v", ErrStoreUnavailable, err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return tagCatalog(resources), nil
}

func likePatterns(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = likePattern(v)
	}
	return out
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
