package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
)

const peopleTable = "people"

var peopleColumns = []string{
	"id", "full_name", "previous_names", "CAST(date_of_birth AS TEXT)", "place_of_birth",
	"profession", "address", "is_marriage_officer", "marriage_officer_church",
	"created_at", "updated_at",
}

type PeopleRepository interface {
	FindByName(ctx context.Context, fullName string) (*entity.Person, error)
	Create(ctx context.Context, p *entity.Person) error
	Update(ctx context.Context, p *entity.Person) error
}

type peopleRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPeopleRepository(db *DB, logger *slog.Logger) PeopleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &peopleRepository{db: db, logger: logger}
}

// FindByName matches full_name case-insensitively. The lowest id wins if legacy rows collide.
func (r *peopleRepository) FindByName(ctx context.Context, fullName string) (*entity.Person, error) {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return nil, fmt.Errorf("%w: empty person name", common.ErrInvalidInput)
	}
	q, args := r.db.builder().Select(peopleColumns...).
		From(entsql.Table(peopleTable)).
		Where(entsql.P(func(b *entsql.Builder) {
			b.WriteString("LOWER(").Ident("full_name").WriteString(")").
				WriteOp(entsql.OpEQ).
				Arg(strings.ToLower(name))
		})).
		OrderBy("id").
		Limit(1).
		Query()

	var found *entity.Person
	err := r.db.query(ctx, q, args, func(rows entsql.ColumnScanner) error {
		p, err := scanPerson(rows)
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	if err != nil {
		r.logger.Error("failed to look up person", "full_name", name, "error", err)
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: person %q", common.ErrNotFound, name)
	}
	return found, nil
}

func (r *peopleRepository) Create(ctx context.Context, p *entity.Person) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("%w: empty person name", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	ins := r.db.builder().Insert(peopleTable).
		Columns("full_name", "previous_names", "date_of_birth", "place_of_birth", "profession",
			"address", "is_marriage_officer", "marriage_officer_church", "created_at").
		Values(p.FullName, stringList(p.PreviousNames), dateArg(p.DateOfBirth), strArg(p.PlaceOfBirth), strArg(p.Profession),
			strArg(p.Address), p.IsMarriageOfficer, strArg(p.MarriageOfficerChurch), now)
	id, err := r.db.insert(ctx, ins)
	if err != nil {
		r.logger.Error("failed to create person", "full_name", p.FullName, "error", err)
		return err
	}
	p.ID = id
	p.CreatedAt = now
	if p.PreviousNames == nil {
		p.PreviousNames = []string{}
	}
	r.logger.Debug("person created", "id", id, "full_name", p.FullName)
	return nil
}

func (r *peopleRepository) Update(ctx context.Context, p *entity.Person) error {
	if p.ID == 0 {
		return fmt.Errorf("%w: person has no id", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	q, args := r.db.builder().Update(peopleTable).
		Set("full_name", p.FullName).
		Set("previous_names", stringList(p.PreviousNames)).
		Set("date_of_birth", dateArg(p.DateOfBirth)).
		Set("place_of_birth", strArg(p.PlaceOfBirth)).
		Set("profession", strArg(p.Profession)).
		Set("address", strArg(p.Address)).
		Set("is_marriage_officer", p.IsMarriageOfficer).
		Set("marriage_officer_church", strArg(p.MarriageOfficerChurch)).
		Set("updated_at", now).
		Where(entsql.EQ("id", p.ID)).
		Query()
	res, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update person", "id", p.ID, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: person %d", common.ErrNotFound, p.ID)
	}
	p.UpdatedAt = &now
	return nil
}

func scanPerson(rows entsql.ColumnScanner) (*entity.Person, error) {
	var (
		p                  entity.Person
		previous           stringList
		dob                date
		createdAt, updated timestamp
	)
	err := rows.Scan(&p.ID, &p.FullName, &previous, &dob, &p.PlaceOfBirth,
		&p.Profession, &p.Address, &p.IsMarriageOfficer, &p.MarriageOfficerChurch,
		&createdAt, &updated)
	if err != nil {
		return nil, err
	}
	p.PreviousNames = previous
	p.DateOfBirth = dob.ptr()
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updated.ptr()
	return &p, nil
}
