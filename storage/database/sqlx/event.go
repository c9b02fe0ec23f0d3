package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/event"
)

const eventColumns = `
	e.id, e.group_id, e.organizer_id, e.title, e.description, e.event_date, e.honoree_child_id,
	ARRAY(SELECT g.child_id::text FROM event_guests g WHERE g.event_id = e.id ORDER BY g.child_id) AS guest_child_ids,
	e.created_at, e.updated_at`

type eventRow struct {
	ID             string         `db:"id"`
	GroupID        string         `db:"group_id"`
	OrganizerID    string         `db:"organizer_id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	EventDate      time.Time      `db:"event_date"`
	HonoreeChildID null.String    `db:"honoree_child_id"`
	GuestChildIDs  pq.StringArray `db:"guest_child_ids"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r eventRow) toEvent() event.Event {
	e := event.Event{
		ID:            r.ID,
		GroupID:       r.GroupID,
		OrganizerID:   r.OrganizerID,
		Title:         r.Title,
		Description:   r.Description,
		EventDate:     r.EventDate.UTC(),
		GuestChildIDs: append([]string{}, r.GuestChildIDs...),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.HonoreeChildID.Valid {
		id := r.HonoreeChildID.String
		e.HonoreeChildID = &id
	}
	return e
}

type commentRow struct {
	ID        string    `db:"id"`
	EventID   string    `db:"event_id"`
	AuthorID  string    `db:"author_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (r commentRow) toComment() event.Comment {
	return event.Comment{ID: r.ID, EventID: r.EventID, AuthorID: r.AuthorID, Content: r.Content, CreatedAt: r.CreatedAt.UTC()}
}

type eventRepository struct {
	db core.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db core.DB) event.Repository {
	return &eventRepository{db: db}
}

func honoree(e event.Event) null.String {
	return null.StringFromPtr(e.HonoreeChildID)
}

func insertGuests(ctx context.Context, tx core.DBExecutor, eventID string, guestIDs []string) error {
	if len(guestIDs) == 0 {
		return nil
	}
	q := `INSERT INTO event_guests (event_id, child_id) SELECT $1, UNNEST($2::uuid[])`
	if _, err := tx.ExecContext(ctx, q, eventID, pq.Array(guestIDs)); err != nil {
		return errors.Wrap(err, "inserting guests")
	}
	return nil
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	const q = `
		INSERT INTO events (id, group_id, organizer_id, title, description, event_date, honoree_child_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err := withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		_, err := tx.ExecContext(ctx, q,
			e.ID, e.GroupID, e.OrganizerID, e.Title, e.Description, e.EventDate, honoree(e), e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting event")
		}
		return insertGuests(ctx, tx, e.ID, e.GuestChildIDs)
	})
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id); err != nil {
		if isNotFound(err) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "selecting event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, groupID string, filter event.QueryFilter, now time.Time, page core.Page) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.group_id = $1`
	args := []interface{}{groupID}
	if filter.Upcoming {
		q += ` AND e.event_date >= $2`
		args = append(args, now)
	}
	q += ` ORDER BY e.event_date, e.id LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, page.Limit, page.Offset)

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	const q = `
		UPDATE events SET title = $2, description = $3, event_date = $4, honoree_child_id = $5, updated_at = $6
		WHERE id = $1`

	err := withTx(ctx, repo.db, func(tx core.DBTransactor) error {
		res, err := tx.ExecContext(ctx, q, e.ID, e.Title, e.Description, e.EventDate, honoree(e), e.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "updating event")
		}
		if err = checkAffected(res, event.ErrNotFound); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM event_guests WHERE event_id = $1`, e.ID); err != nil {
			return errors.Wrap(err, "deleting guests")
		}
		return insertGuests(ctx, tx, e.ID, e.GuestChildIDs)
	})
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return event.ErrNotFound
		}
		return errors.Wrap(err, "deleting event")
	}
	return checkAffected(res, event.ErrNotFound)
}

func (repo *eventRepository) CreateComment(ctx context.Context, c event.Comment) (event.Comment, error) {
	const q = `INSERT INTO event_comments (id, event_id, author_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`

	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.EventID, c.AuthorID, c.Content, c.CreatedAt); err != nil {
		if pqCode(err) == foreignKeyViolation {
			return event.Comment{}, event.ErrNotFound
		}
		return event.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo *eventRepository) GetComment(ctx context.Context, id string) (event.Comment, error) {
	var row commentRow
	q := `SELECT id, event_id, author_id, content, created_at FROM event_comments WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if isNotFound(err) {
			return event.Comment{}, event.ErrCommentNotFound
		}
		return event.Comment{}, errors.Wrap(err, "selecting comment")
	}
	return row.toComment(), nil
}

// QueryComments joins the event so that its organizer never reads the thread.
func (repo *eventRepository) QueryComments(ctx context.Context, eventID, viewerID string, page core.Page) ([]event.Comment, error) {
	const q = `
		SELECT c.id, c.event_id, c.author_id, c.content, c.created_at
		FROM event_comments c JOIN events e ON e.id = c.event_id
		WHERE c.event_id = $1 AND e.organizer_id <> $2
		ORDER BY c.created_at, c.id
		LIMIT $3 OFFSET $4`

	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, q, eventID, viewerID, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting comments")
	}
	comments := make([]event.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toComment())
	}
	return comments, nil
}

func (repo *eventRepository) DeleteComment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM event_comments WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return event.ErrCommentNotFound
		}
		return errors.Wrap(err, "deleting comment")
	}
	return checkAffected(res, event.ErrCommentNotFound)
}
