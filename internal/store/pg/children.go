package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"verisyntra.org/internal/ids"
	"verisyntra.org/internal/store"
)

// childTables lists every per-activity table for wholesale replacement.
var childTables = []string{
	"data_categories", "data_subjects", "data_recipients",
	"data_retentions", "security_measures", "processing_locations",
}

func clearChildren(ctx context.Context, tx *sql.Tx, activityID string) error {
	for _, table := range childTables {
		if _, err := tx.ExecContext(ctx, `delete from `+table+` where activity_id=$1`, activityID); err != nil {
			return err
		}
	}
	return nil
}

func writeChildren(ctx context.Context, tx *sql.Tx, a *store.ProcessingActivity) error {
	for i := range a.Categories {
		c := &a.Categories[i]
		if c.ID == "" {
			c.ID = ids.New()
		}
		fields, err := json.Marshal(c.Fields)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into data_categories(id, activity_id, name_vi, name_en, type, fields, sensitive, discovered_fields, included_fields)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, c.ID, a.ID, c.Name.Vi, c.Name.En, c.Type, fields, c.Sensitive, c.DiscoveredFields, c.IncludedFields); err != nil {
			return err
		}
	}
	for i := range a.Subjects {
		s := &a.Subjects[i]
		if s.ID == "" {
			s.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into data_subjects(id, activity_id, category, estimated_count, children_under_16, vulnerable)
			values ($1,$2,$3,$4,$5,$6)
		`, s.ID, a.ID, s.Category, s.EstimatedCount, s.ChildrenUnder16, s.Vulnerable); err != nil {
			return err
		}
	}
	for i := range a.Recipients {
		r := &a.Recipients[i]
		if r.ID == "" {
			r.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into data_recipients(id, activity_id, name_vi, name_en, type, country, cross_border, transfer_mechanism, safeguards_vi, safeguards_en)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, r.ID, a.ID, r.Name.Vi, r.Name.En, r.Type, r.Country, r.CrossBorder, r.TransferMechanism, r.Safeguards.Vi, r.Safeguards.En); err != nil {
			return err
		}
	}
	if a.Retention != nil {
		r := a.Retention
		if _, err := tx.ExecContext(ctx, `
			insert into data_retentions(activity_id, period_vi, period_en, days, deletion_vi, deletion_en, review_cadence)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, a.ID, r.Period.Vi, r.Period.En, r.Days, r.DeletionProcedure.Vi, r.DeletionProcedure.En, r.ReviewCadence); err != nil {
			return err
		}
	}
	for i := range a.SecurityMeasures {
		m := &a.SecurityMeasures[i]
		if m.ID == "" {
			m.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into security_measures(id, activity_id, type, name_vi, name_en)
			values ($1,$2,$3,$4,$5)
		`, m.ID, a.ID, m.Type, m.Name.Vi, m.Name.En); err != nil {
			return err
		}
	}
	for i := range a.Locations {
		l := &a.Locations[i]
		if l.ID == "" {
			l.ID = ids.New()
		}
		if _, err := tx.ExecContext(ctx, `
			insert into processing_locations(id, activity_id, type, country, region, cloud_provider, cloud_region)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, l.ID, a.ID, l.Type, l.Country, l.Region, l.CloudProvider, l.CloudRegion); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadChildren(ctx context.Context, a *store.ProcessingActivity) error {
	rows, err := s.db.QueryContext(ctx, `
		select id, name_vi, name_en, type, fields, sensitive, discovered_fields, included_fields
		from data_categories where activity_id=$1 order by id
	`, a.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c store.DataCategory
		var fields []byte
		if err := rows.Scan(&c.ID, &c.Name.Vi, &c.Name.En, &c.Type, &fields, &c.Sensitive, &c.DiscoveredFields, &c.IncludedFields); err != nil {
			rows.Close()
			return err
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &c.Fields); err != nil {
				rows.Close()
				return err
			}
		}
		a.Categories = append(a.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		select id, category, estimated_count, children_under_16, vulnerable
		from data_subjects where activity_id=$1 order by id
	`, a.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var sub store.DataSubject
		if err := rows.Scan(&sub.ID, &sub.Category, &sub.EstimatedCount, &sub.ChildrenUnder16, &sub.Vulnerable); err != nil {
			rows.Close()
			return err
		}
		a.Subjects = append(a.Subjects, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		select id, name_vi, name_en, type, country, cross_border, transfer_mechanism, safeguards_vi, safeguards_en
		from data_recipients where activity_id=$1 order by id
	`, a.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var r store.DataRecipient
		if err := rows.Scan(&r.ID, &r.Name.Vi, &r.Name.En, &r.Type, &r.Country, &r.CrossBorder, &r.TransferMechanism, &r.Safeguards.Vi, &r.Safeguards.En); err != nil {
			rows.Close()
			return err
		}
		a.Recipients = append(a.Recipients, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var ret store.DataRetention
	err = s.db.QueryRowContext(ctx, `
		select period_vi, period_en, days, deletion_vi, deletion_en, review_cadence
		from data_retentions where activity_id=$1
	`, a.ID).Scan(&ret.Period.Vi, &ret.Period.En, &ret.Days, &ret.DeletionProcedure.Vi, &ret.DeletionProcedure.En, &ret.ReviewCadence)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		a.Retention = &ret
	}

	rows, err = s.db.QueryContext(ctx, `
		select id, type, name_vi, name_en
		from security_measures where activity_id=$1 order by id
	`, a.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var m store.SecurityMeasure
		if err := rows.Scan(&m.ID, &m.Type, &m.Name.Vi, &m.Name.En); err != nil {
			rows.Close()
			return err
		}
		a.SecurityMeasures = append(a.SecurityMeasures, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		select id, type, country, region, cloud_provider, cloud_region
		from processing_locations where activity_id=$1 order by id
	`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l store.ProcessingLocation
		if err := rows.Scan(&l.ID, &l.Type, &l.Country, &l.Region, &l.CloudProvider, &l.CloudRegion); err != nil {
			return err
		}
		a.Locations = append(a.Locations, l)
	}
	return rows.Err()
}
