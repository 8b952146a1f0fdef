package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getBusinessProfile = `
SELECT id, user_id, business_name, phone, address, gstin, gst_percentage, reports_pin_hash, created_at, updated_at
FROM business_profiles
WHERE user_id = $1
`

func (q *Queries) GetBusinessProfile(ctx context.Context, userID uuid.UUID) (BusinessProfile, error) {
	row := q.db.QueryRow(ctx, getBusinessProfile, userID)
	var p BusinessProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.BusinessName, &p.Phone, &p.Address, &p.Gstin,
		&p.GstPercentage, &p.ReportsPinHash, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const upsertBusinessProfile = `
INSERT INTO business_profiles (user_id, business_name, phone, address, gstin, gst_percentage)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
    business_name = EXCLUDED.business_name,
    phone = EXCLUDED.phone,
    address = EXCLUDED.address,
    gstin = EXCLUDED.gstin,
    gst_percentage = EXCLUDED.gst_percentage,
    updated_at = now()
RETURNING id, user_id, business_name, phone, address, gstin, gst_percentage, reports_pin_hash, created_at, updated_at
`

type UpsertBusinessProfileParams struct {
	UserID        uuid.UUID
	BusinessName  pgtype.Text
	Phone         pgtype.Text
	Address       pgtype.Text
	Gstin         pgtype.Text
	GstPercentage pgtype.Numeric
}

func (q *Queries) UpsertBusinessProfile(ctx context.Context, arg UpsertBusinessProfileParams) (BusinessProfile, error) {
	row := q.db.QueryRow(ctx, upsertBusinessProfile,
		arg.UserID, arg.BusinessName, arg.Phone, arg.Address, arg.Gstin, arg.GstPercentage,
	)
	var p BusinessProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.BusinessName, &p.Phone, &p.Address, &p.Gstin,
		&p.GstPercentage, &p.ReportsPinHash, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const setReportsPin = `
INSERT INTO business_profiles (user_id, reports_pin_hash)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET
    reports_pin_hash = EXCLUDED.reports_pin_hash,
    updated_at = now()
RETURNING id
`

type SetReportsPinParams struct {
	UserID         uuid.UUID
	ReportsPinHash pgtype.Text
}

func (q *Queries) SetReportsPin(ctx context.Context, arg SetReportsPinParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, setReportsPin, arg.UserID, arg.ReportsPinHash)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const getReportsPinHash = `
SELECT reports_pin_hash
FROM business_profiles
WHERE user_id = $1
`

func (q *Queries) GetReportsPinHash(ctx context.Context, userID uuid.UUID) (pgtype.Text, error) {
	row := q.db.QueryRow(ctx, getReportsPinHash, userID)
	var hash pgtype.Text
	err := row.Scan(&hash)
	return hash, err
}
