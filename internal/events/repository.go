package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/internal/scope"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `e.id, e.name, e.datetime, COALESCE(e.date,''), COALESCE(e.end_time,''),
	COALESCE(e.place,''), e.city, COALESCE(e.department,''), COALESCE(e.price,''), COALESCE(e.audience,''),
	COALESCE(e.emoji,''), COALESCE(e.url,''), COALESCE(e.image_url,''), e.theme_id, e.status, e.organization_id,
	e.createdby_name, e.createdby_email, e.created_at, e.updated_at,
	t.id, t.name, t.image_url, t.image_url_light`

const eventFrom = ` FROM events e LEFT JOIN themes t ON t.id = e.theme_id`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var proposerName, proposerEmail *string
	var themeID *uuid.UUID
	var themeName, themeImage, themeImageLight *string
	err := row.Scan(&e.ID, &e.Name, &e.Datetime, &e.Date, &e.EndTime,
		&e.Place, &e.City, &e.Department, &e.Price, &e.Audience,
		&e.Emoji, &e.URL, &e.ImageURL, &e.ThemeID, &e.Status, &e.OrganizationID,
		&proposerName, &proposerEmail, &e.CreatedAt, &e.UpdatedAt,
		&themeID, &themeName, &themeImage, &themeImageLight)
	if err != nil {
		return nil, err
	}
	if proposerName != nil || proposerEmail != nil {
		p := models.Proposer{}
		if proposerName != nil {
			p.Name = *proposerName
		}
		if proposerEmail != nil {
			p.Email = *proposerEmail
		}
		e.CreatedBy = &p
	}
	if themeID != nil {
		theme := models.Theme{ID: *themeID}
		if themeName != nil {
			theme.Name = *themeName
		}
		if themeImage != nil {
			theme.ImageURL = *themeImage
		}
		if themeImageLight != nil {
			theme.ImageURLLight = *themeImageLight
		}
		e.Theme = &theme
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, name, datetime, date, end_time, place, city, department, price, audience,
		emoji, url, image_url, theme_id, status, organization_id, createdby_name, createdby_email)
		VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, NULLIF($7,''), NULLIF($8,''), NULLIF($9,''),
		NULLIF($10,''), NULLIF($11,''), NULLIF($12,''), $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`
	var proposerName, proposerEmail *string
	if e.CreatedBy != nil {
		proposerName, proposerEmail = &e.CreatedBy.Name, &e.CreatedBy.Email
	}
	return r.pool.QueryRow(ctx, q, e.Name, e.Datetime, e.Date, e.EndTime, e.Place, e.City, e.Department, e.Price, e.Audience,
		e.Emoji, e.URL, e.ImageURL, e.ThemeID, e.Status, e.OrganizationID, proposerName, proposerEmail).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event with its theme joined, if any.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	q := `SELECT ` + eventColumns + eventFrom + ` WHERE e.id = $1`
	return scanEvent(r.pool.QueryRow(ctx, q, id))
}

// UpdateParams carries the editable event fields. Nil pointers leave the
// column untouched; the proposer snapshot is deliberately not updatable.
type UpdateParams struct {
	Name           *string
	Datetime       *string
	Date           *string
	EndTime        *string
	Place          *string
	City           *string
	Department     *string
	Price          *string
	Audience       *string
	Emoji          *string
	URL            *string
	ImageURL       *string
	ThemeID        *uuid.UUID
	ClearTheme     bool
	OrganizationID *uuid.UUID
	ClearOrg       bool
}

// Update applies the given fields and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) error {
	sets := []string{"updated_at = NOW()"}
	var args []interface{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	addText := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = NULLIF($%d,'')", col, len(args)))
		}
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Datetime != nil {
		add("datetime", *p.Datetime)
	}
	addText("date", p.Date)
	addText("end_time", p.EndTime)
	addText("place", p.Place)
	if p.City != nil {
		add("city", *p.City)
	}
	addText("department", p.Department)
	addText("price", p.Price)
	addText("audience", p.Audience)
	addText("emoji", p.Emoji)
	addText("url", p.URL)
	addText("image_url", p.ImageURL)
	if p.ClearTheme {
		sets = append(sets, "theme_id = NULL")
	} else if p.ThemeID != nil {
		add("theme_id", *p.ThemeID)
	}
	if p.ClearOrg {
		sets = append(sets, "organization_id = NULL")
	} else if p.OrganizationID != nil {
		add("organization_id", *p.OrganizationID)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE events SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	_, err := r.pool.Exec(ctx, q, args...)
	return err
}

// UpdateStatus accepts or rejects an event.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error {
	const q = `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, status, id)
	return err
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM events WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ListAccepted returns all accepted events ordered for the public calendar
// (ascending by date with undated entries last, then by the schedule
// string).
func (r *Repository) ListAccepted(ctx context.Context) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + eventFrom +
		` WHERE e.status = 'accepted' ORDER BY e.date ASC NULLS LAST, e.datetime ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// ListParams controls the admin event listing.
type ListParams struct {
	Status models.EventStatus
	// Search matches the event name, case-insensitively.
	Search string
	// Today is the reference ISO date; ShowPast selects date < Today (or no
	// date) instead of date >= Today. Empty Today disables the split.
	Today    string
	ShowPast bool
	Filter   scope.Filter
	Limit    int
	Offset   int
}

// buildListConditions translates ListParams into a WHERE clause. Split out
// so the scope-filter SQL is testable without a database.
func buildListConditions(p ListParams) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Status != "" {
		conds = append(conds, "e.status = "+arg(p.Status))
	}
	if p.Search != "" {
		conds = append(conds, "e.name ILIKE "+arg("%"+p.Search+"%"))
	}
	if p.Today != "" {
		if p.ShowPast {
			conds = append(conds, "(e.date < "+arg(p.Today)+" OR e.date IS NULL)")
		} else {
			conds = append(conds, "e.date >= "+arg(p.Today))
		}
	}
	switch {
	case p.Filter.All:
		// no organization condition
	case p.Filter.OrganizationID != nil:
		// Strict equality: global events are excluded under a single
		// organization scope.
		conds = append(conds, "e.organization_id = "+arg(*p.Filter.OrganizationID))
	default:
		cond := "(e.organization_id = ANY(" + arg(p.Filter.OrganizationIDs) + ")"
		if p.Filter.IncludeGlobal {
			cond += " OR e.organization_id IS NULL"
		}
		cond += ")"
		conds = append(conds, cond)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of events matching the params plus the exact total.
func (r *Repository) List(ctx context.Context, p ListParams) ([]models.Event, int, error) {
	where, args := buildListConditions(p)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events e"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY e.date ASC NULLS LAST, e.datetime ASC"
	if p.ShowPast {
		order = " ORDER BY e.date DESC NULLS LAST, e.datetime ASC"
	}
	q := `SELECT ` + eventColumns + eventFrom + where + order
	if p.Limit > 0 {
		args = append(args, p.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, p.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *e)
	}
	return list, total, rows.Err()
}
