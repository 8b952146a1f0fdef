package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by PIN verification.
var (
	ErrInvalidPinFormat = errors.New("pin must be exactly 4 digits")
	ErrPinNotConfigured = errors.New("reports pin is not set")
	ErrInvalidPin       = errors.New("incorrect pin")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// PinStore reads the stored reports PIN hash.
// Satisfied by *database.Queries.
type PinStore interface {
	GetReportsPinHash(ctx context.Context, userID uuid.UUID) (pgtype.Text, error)
}

// VerifyReportsPin checks a submitted PIN against the stored bcrypt hash.
// Format is checked before any lookup so a malformed PIN never reveals
// whether one is configured.
func VerifyReportsPin(ctx context.Context, store PinStore, userID uuid.UUID, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPinFormat
	}

	hash, err := store.GetReportsPinHash(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPinNotConfigured
		}
		return fmt.Errorf("get pin hash: %w", err)
	}
	if !hash.Valid || hash.String == "" {
		return ErrPinNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(pin)); err != nil {
		return ErrInvalidPin
	}
	return nil
}

// HashReportsPin validates and hashes a new reports PIN.
func HashReportsPin(pin string) (string, error) {
	if !pinPattern.MatchString(pin) {
		return "", ErrInvalidPinFormat
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}
