package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
)

const causeListTable = "cause_list_entries"

var causeListColumns = []string{
	"id", "suit_no", "CAST(hearing_date AS TEXT)", "CAST(hearing_time AS TEXT)", "case_title",
	"first_party_name", "second_party_name", "case_type", "remarks", "court_type", "venue",
	"location", "source_document", "page_number", "status", "is_active", "created_by",
	"updated_by", "created_at", "updated_at",
}

// UpsertResult counts what one batch did to the table.
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type CauseListRepository interface {
	UpsertBatch(ctx context.Context, entries []entity.CauseListEntry) (UpsertResult, error)
	FindByKey(ctx context.Context, suitNo string, hearingDate time.Time) (*entity.CauseListEntry, error)
	ListByHearingDate(ctx context.Context, from, to time.Time) ([]*entity.CauseListEntry, error)
}

type causeListRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCauseListRepository(db *DB, logger *slog.Logger) CauseListRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &causeListRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch writes entries in one transaction keyed by (suit_no, hearing_date). Existing
// rows get their mutable fields refreshed; a nil optional field never clears a stored value.
// Nothing is committed if any entry fails.
func (r *causeListRepository) UpsertBatch(ctx context.Context, entries []entity.CauseListEntry) (UpsertResult, error) {
	var res UpsertResult
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		for i := range entries {
			e := &entries[i]
			if e.SuitNo == "" || e.HearingDate.IsZero() {
				return fmt.Errorf("%w: entry %d has no suit number or hearing date", common.ErrInvalidInput, i)
			}
			existing, err := r.FindByKey(ctx, e.SuitNo, e.HearingDate)
			switch {
			case errors.Is(err, common.ErrNotFound):
				if err := r.insert(ctx, e); err != nil {
					return err
				}
				res.Created++
			case err != nil:
				return err
			default:
				e.ID = existing.ID
				if err := r.update(ctx, e); err != nil {
					return err
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("cause list upsert rolled back", "entries", len(entries), "error", err)
		return UpsertResult{}, err
	}
	r.logger.Info("cause list upsert committed", "created", res.Created, "updated", res.Updated)
	return res, nil
}

func (r *causeListRepository) insert(ctx context.Context, e *entity.CauseListEntry) error {
	now := time.Now().UTC()
	if e.Status == "" {
		e.Status = string(constants.EntryStatusPending)
	}
	if e.CreatedBy == "" {
		e.CreatedBy = constants.ProvenanceCauseListImport
	}
	e.IsActive = true
	e.CreatedAt = now

	ins := r.db.builder().Insert(causeListTable).
		Columns("suit_no", "hearing_date", "hearing_time", "case_title", "first_party_name",
			"second_party_name", "case_type", "remarks", "court_type", "venue", "location",
			"source_document", "page_number", "status", "is_active", "created_by", "created_at").
		Values(e.SuitNo, dateArg(&e.HearingDate), strArg(e.HearingTime), e.CaseTitle, strArg(e.FirstPartyName),
			strArg(e.SecondPartyName), strArg(e.CaseType), strArg(e.Remarks), strArg(e.CourtType), strArg(e.Venue), strArg(e.Location),
			e.SourceDocument, e.PageNumber, e.Status, e.IsActive, e.CreatedBy, now)
	id, err := r.db.insert(ctx, ins)
	if err != nil {
		r.logger.Error("failed to insert cause list entry", "suit_no", e.SuitNo, "hearing_date", dateArg(&e.HearingDate), "error", err)
		return err
	}
	e.ID = id
	r.logger.Debug("cause list entry created", "id", id, "suit_no", e.SuitNo)
	return nil
}

func (r *causeListRepository) update(ctx context.Context, e *entity.CauseListEntry) error {
	now := time.Now().UTC()
	by := constants.ProvenanceCauseListImport
	e.UpdatedBy = &by
	e.UpdatedAt = &now

	u := r.db.builder().Update(causeListTable).
		Set("case_title", e.CaseTitle).
		Set("source_document", e.SourceDocument).
		Set("page_number", e.PageNumber).
		Set("updated_by", by).
		Set("updated_at", now)
	optional := []struct {
		col string
		val *string
	}{
		{"hearing_time", e.HearingTime},
		{"first_party_name", e.FirstPartyName},
		{"second_party_name", e.SecondPartyName},
		{"case_type", e.CaseType},
		{"remarks", e.Remarks},
		{"court_type", e.CourtType},
		{"venue", e.Venue},
		{"location", e.Location},
	}
	for _, o := range optional {
		if o.val != nil {
			u.Set(o.col, *o.val)
		}
	}
	q, args := u.Where(entsql.EQ("id", e.ID)).Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to update cause list entry", "id", e.ID, "suit_no", e.SuitNo, "error", err)
		return err
	}
	r.logger.Debug("cause list entry updated", "id", e.ID, "suit_no", e.SuitNo)
	return nil
}

func (r *causeListRepository) FindByKey(ctx context.Context, suitNo string, hearingDate time.Time) (*entity.CauseListEntry, error) {
	q, args := r.db.builder().Select(causeListColumns...).
		From(entsql.Table(causeListTable)).
		Where(entsql.And(
			entsql.EQ("suit_no", suitNo),
			entsql.EQ("hearing_date", dateArg(&hearingDate)),
		)).
		Limit(1).
		Query()
	out, err := r.list(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: cause list entry %s on %s", common.ErrNotFound, suitNo, hearingDate.Format(dateLayout))
	}
	return out[0], nil
}

// ListByHearingDate returns entries heard between from and to inclusive. A zero bound is open.
func (r *causeListRepository) ListByHearingDate(ctx context.Context, from, to time.Time) ([]*entity.CauseListEntry, error) {
	sel := r.db.builder().Select(causeListColumns...).From(entsql.Table(causeListTable))
	var preds []*entsql.Predicate
	if !from.IsZero() {
		preds = append(preds, entsql.GTE("hearing_date", dateArg(&from)))
	}
	if !to.IsZero() {
		preds = append(preds, entsql.LTE("hearing_date", dateArg(&to)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	q, args := sel.OrderBy("hearing_date", "suit_no").Query()
	out, err := r.list(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list cause list entries", "from", from, "to", to, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *causeListRepository) list(ctx context.Context, q string, args []any) ([]*entity.CauseListEntry, error) {
	var out []*entity.CauseListEntry
	err := r.db.query(ctx, q, args, func(rows entsql.ColumnScanner) error {
		var (
			e                  entity.CauseListEntry
			hearingDate        date
			createdBy          sql.NullString
			createdAt, updated timestamp
		)
		err := rows.Scan(&e.ID, &e.SuitNo, &hearingDate, &e.HearingTime, &e.CaseTitle,
			&e.FirstPartyName, &e.SecondPartyName, &e.CaseType, &e.Remarks, &e.CourtType, &e.Venue,
			&e.Location, &e.SourceDocument, &e.PageNumber, &e.Status, &e.IsActive, &createdBy,
			&e.UpdatedBy, &createdAt, &updated)
		if err != nil {
			return err
		}
		e.HearingDate = hearingDate.Time
		e.CreatedBy = createdBy.String
		e.CreatedAt = createdAt.Time
		e.UpdatedAt = updated.ptr()
		out = append(out, &e)
		return nil
	})
	return out, err
}
