package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
)

const gazetteTable = "gazettes"

var gazetteColumns = []string{
	"id", "gazette_type", "item_number", "document_filename", "gazette_number",
	"CAST(gazette_date AS TEXT)", "person_id", "full_name", "old_name", "new_name", "alias_names",
	"profession", "address", "CAST(old_date_of_birth AS TEXT)", "CAST(new_date_of_birth AS TEXT)",
	"old_place_of_birth", "new_place_of_birth", "CAST(effective_date AS TEXT)", "church",
	"location", "remarks", "created_at",
}

type GazetteRepository interface {
	// GetOrCreate inserts g unless a row with the same (item_number, document_filename)
	// exists. g.ID is set either way; created reports which happened.
	GetOrCreate(ctx context.Context, g *entity.Gazette) (created bool, err error)
	Find(ctx context.Context, itemNumber, documentFilename string) (*entity.Gazette, error)
	ListByPerson(ctx context.Context, personID int64) ([]*entity.Gazette, error)
}

type gazetteRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewGazetteRepository(db *DB, logger *slog.Logger) GazetteRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &gazetteRepository{db: db, logger: logger}
}

func (r *gazetteRepository) GetOrCreate(ctx context.Context, g *entity.Gazette) (bool, error) {
	if g.ItemNumber == "" || g.DocumentFilename == "" {
		return false, fmt.Errorf("%w: gazette needs item number and document filename", common.ErrInvalidInput)
	}
	existing, err := r.Find(ctx, g.ItemNumber, g.DocumentFilename)
	switch {
	case err == nil:
		g.ID = existing.ID
		g.CreatedAt = existing.CreatedAt
		r.logger.Debug("gazette already recorded", "id", existing.ID, "item_number", g.ItemNumber, "document", g.DocumentFilename)
		return false, nil
	case !errors.Is(err, common.ErrNotFound):
		return false, err
	}

	now := time.Now().UTC()
	ins := r.db.builder().Insert(gazetteTable).
		Columns("gazette_type", "item_number", "document_filename", "gazette_number", "gazette_date",
			"person_id", "full_name", "old_name", "new_name", "alias_names", "profession", "address",
			"old_date_of_birth", "new_date_of_birth", "old_place_of_birth", "new_place_of_birth",
			"effective_date", "church", "location", "remarks", "created_at").
		Values(g.GazetteType, g.ItemNumber, g.DocumentFilename, strArg(g.GazetteNumber), dateArg(g.GazetteDate),
			int64Arg(g.PersonID), g.FullName, strArg(g.OldName), strArg(g.NewName), stringList(g.AliasNames), strArg(g.Profession), strArg(g.Address),
			dateArg(g.OldDateOfBirth), dateArg(g.NewDateOfBirth), strArg(g.OldPlaceOfBirth), strArg(g.NewPlaceOfBirth),
			dateArg(g.EffectiveDate), strArg(g.Church), strArg(g.Location), strArg(g.Remarks), now)
	id, err := r.db.insert(ctx, ins)
	if err != nil {
		r.logger.Error("failed to create gazette", "item_number", g.ItemNumber, "document", g.DocumentFilename, "error", err)
		return false, err
	}
	g.ID = id
	g.CreatedAt = now
	return true, nil
}

func (r *gazetteRepository) Find(ctx context.Context, itemNumber, documentFilename string) (*entity.Gazette, error) {
	q, args := r.db.builder().Select(gazetteColumns...).
		From(entsql.Table(gazetteTable)).
		Where(entsql.And(
			entsql.EQ("item_number", itemNumber),
			entsql.EQ("document_filename", documentFilename),
		)).
		Limit(1).
		Query()
	out, err := r.list(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: gazette item %s in %s", common.ErrNotFound, itemNumber, documentFilename)
	}
	return out[0], nil
}

func (r *gazetteRepository) ListByPerson(ctx context.Context, personID int64) ([]*entity.Gazette, error) {
	q, args := r.db.builder().Select(gazetteColumns...).
		From(entsql.Table(gazetteTable)).
		Where(entsql.EQ("person_id", personID)).
		OrderBy("id").
		Query()
	return r.list(ctx, q, args)
}

func (r *gazetteRepository) list(ctx context.Context, q string, args []any) ([]*entity.Gazette, error) {
	var out []*entity.Gazette
	err := r.db.query(ctx, q, args, func(rows entsql.ColumnScanner) error {
		var (
			g                           entity.Gazette
			gazetteDate, oldDOB, newDOB date
			effective                   date
			aliases                     stringList
			createdAt                   timestamp
		)
		err := rows.Scan(&g.ID, &g.GazetteType, &g.ItemNumber, &g.DocumentFilename, &g.GazetteNumber,
			&gazetteDate, &g.PersonID, &g.FullName, &g.OldName, &g.NewName, &aliases,
			&g.Profession, &g.Address, &oldDOB, &newDOB,
			&g.OldPlaceOfBirth, &g.NewPlaceOfBirth, &effective, &g.Church,
			&g.Location, &g.Remarks, &createdAt)
		if err != nil {
			return err
		}
		g.GazetteDate = gazetteDate.ptr()
		g.OldDateOfBirth = oldDOB.ptr()
		g.NewDateOfBirth = newDOB.ptr()
		g.EffectiveDate = effective.ptr()
		g.AliasNames = aliases
		g.CreatedAt = createdAt.Time
		out = append(out, &g)
		return nil
	})
	return out, err
}

func int64Arg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
