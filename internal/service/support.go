package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces unique identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs for entities.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// ULIDGenerator issues time-sortable ULIDs for history records.
type ULIDGenerator struct{}

// NewID implements IDGenerator.
func (ULIDGenerator) NewID() string { return ulid.Make().String() }

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, q repository.DBTX) error) error
}

// parseDate parses a YYYY-MM-DD value, returning fallback's date when raw is empty.
func parseDate(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date(fallback), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "dates must use YYYY-MM-DD")
	}
	return t, nil
}

func invalidPayload(err error, message string) *appErrors.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		message = message + ": " + strings.ToLower(verrs[0].Field()) + " failed " + verrs[0].Tag()
	}
	return appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, message)
}

// storageErr keeps typed errors intact and wraps everything else as a storage failure. Values the
// database cannot parse, such as a malformed id, are the caller's fault and never retryable.
func storageErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErrors.IsDomain(err) {
		return err
	}
	if repository.IsInvalidTextRepresentation(err) {
		return appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, appErrors.ErrInvalidParameter.Status, "malformed identifier")
	}
	return appErrors.Storage(err, message)
}

func errorCode(err error) string {
	if err == nil {
		return "OK"
	}
	return appErrors.FromError(err).Code
}
