package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"idhub/internal/credential/models"
	id "idhub/pkg/domain"
	pkgerrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/sentinel"
)

// PostgresStore persists credential resources in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `id, participant_context_id, issuer_id, holder_id, status, format,
	raw_credential, claims, metadata, expires_at, time_of_last_status_update`

func (s *PostgresStore) Create(ctx context.Context, res models.VerifiableCredentialResource) error {
	claimsBytes, metaBytes, err := marshalDocs(res)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO vc_resources (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		res.ID.String(),
		res.ParticipantContextID.String(),
		res.IssuerID,
		res.HolderID,
		string(res.Status),
		res.Format.String(),
		res.RawCredential,
		claimsBytes,
		metaBytes,
		nullTime(res.ExpiresAt),
		res.TimeOfLastStatusUpdate,
	)
	if err != nil {
		return pkgerrors.WrapExternal(err, "create credential")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.WrapExternal(err, "create credential")
	}
	if affected == 0 {
		return pkgerrors.Wrap(sentinel.ErrAlreadyUsed, pkgerrors.CodeConflict, "credential ID already exists")
	}
	return nil
}

// Update runs the compare-and-swap inside a transaction: the stored row is
// locked, the transition validated against the stored status, then the write
// is guarded by the (id, time_of_last_status_update) pair. A lost race rolls
// back with a conflict; nothing is partially written.
func (s *PostgresStore) Update(ctx context.Context, res models.VerifiableCredentialResource, lastSeen time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.WrapExternal(err, "begin credential update")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var storedStatus string
	var storedParticipant string
	var storedVersion time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT status, participant_context_id, time_of_last_status_update
		FROM vc_resources WHERE id = $1 FOR UPDATE
	`, res.ID.String()).Scan(&storedStatus, &storedParticipant, &storedVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return pkgerrors.WrapExternal(err, "read credential for update")
	}

	if !storedVersion.Equal(lastSeen) {
		return pkgerrors.Wrap(sentinel.ErrConflict, pkgerrors.CodeConflict,
			"credential changed since read; re-read and retry")
	}
	if storedParticipant != res.ParticipantContextID.String() {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "participant context of a credential is immutable")
	}
	if storedStatus != string(res.Status) && !models.VcStatus(storedStatus).CanTransition(res.Status) {
		return pkgerrors.New(pkgerrors.CodeStateTransition,
			"illegal status transition "+storedStatus+" -> "+string(res.Status))
	}

	claimsBytes, metaBytes, err := marshalDocs(res)
	if err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE vc_resources
		SET issuer_id = $2, holder_id = $3, status = $4, raw_credential = $5,
			claims = $6, metadata = $7, expires_at = $8, time_of_last_status_update = $9
		WHERE id = $1 AND time_of_last_status_update = $10
	`,
		res.ID.String(),
		res.IssuerID,
		res.HolderID,
		string(res.Status),
		res.RawCredential,
		claimsBytes,
		metaBytes,
		nullTime(res.ExpiresAt),
		res.TimeOfLastStatusUpdate,
		lastSeen,
	)
	if err != nil {
		return pkgerrors.WrapExternal(err, "update credential")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.WrapExternal(err, "update credential")
	}
	if affected == 0 {
		return pkgerrors.Wrap(sentinel.ErrConflict, pkgerrors.CodeConflict,
			"credential changed since read; re-read and retry")
	}
	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	query := `SELECT ` + credentialColumns + ` FROM vc_resources WHERE id = $1`
	res, err := scanCredential(s.db.QueryRowContext(ctx, query, credentialID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VerifiableCredentialResource{}, ErrNotFound
		}
		return models.VerifiableCredentialResource{}, pkgerrors.WrapExternal(err, "find credential by id")
	}
	return res, nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]models.VerifiableCredentialResource, error) {
	if filter.Participant.IsNil() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "query requires a participant context")
	}

	where := []string{"participant_context_id = $1"}
	args := []any{filter.Participant.String()}
	for _, p := range filter.Predicates {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		clause, clauseArgs := compilePredicate(p, len(args)+1)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	query := `SELECT ` + credentialColumns + ` FROM vc_resources WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.WrapExternal(err, "query credentials")
	}
	defer rows.Close() //nolint:errcheck

	out := []models.VerifiableCredentialResource{}
	for rows.Next() {
		res, err := scanCredential(rows)
		if err != nil {
			return nil, pkgerrors.WrapExternal(err, "scan credential")
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// compilePredicate translates one predicate clause to SQL. The semantics must
// stay aligned with Predicate.matches in predicate.go. Claim keys and values
// both bind as parameters; no caller-supplied text ever reaches the SQL text.
func compilePredicate(p Predicate, argPos int) (string, []any) {
	placeholder := fmt.Sprintf("$%d", argPos)
	column := map[string]string{
		FieldIssuer: "issuer_id",
		FieldHolder: "holder_id",
		FieldStatus: "status",
		FieldFormat: "format",
	}[p.Field]

	if column != "" {
		if p.Op == OpEq {
			return column + " = " + placeholder, []any{p.Value}
		}
		return column + " LIKE '%' || " + placeholder + " || '%'", []any{p.Value}
	}

	key := strings.TrimPrefix(p.Field, claimsPrefix)
	valuePlaceholder := fmt.Sprintf("$%d", argPos+1)
	if p.Op == OpEq {
		return "claims ->> " + placeholder + " = " + valuePlaceholder, []any{key, p.Value}
	}
	// Membership on array claims, substring on scalar claims.
	return "(claims -> " + placeholder + " ? " + valuePlaceholder +
		" OR claims ->> " + placeholder + " LIKE '%' || " + valuePlaceholder + " || '%')", []any{key, p.Value}
}

func (s *PostgresStore) DeleteByID(ctx context.Context, credentialID id.CredentialID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM vc_resources WHERE id = $1`, credentialID.String())
	if err != nil {
		return pkgerrors.WrapExternal(err, "delete credential")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.WrapExternal(err, "delete credential")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByParticipant(ctx context.Context, participant id.ParticipantID) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM vc_resources WHERE participant_context_id = $1`, participant.String())
	if err != nil {
		return 0, pkgerrors.WrapExternal(err, "delete credentials by participant")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, pkgerrors.WrapExternal(err, "delete credentials by participant")
	}
	return int(affected), nil
}

func (s *PostgresStore) ListExpiring(ctx context.Context, cutoff time.Time, limit int) ([]models.VerifiableCredentialResource, error) {
	query := `
		SELECT ` + credentialColumns + ` FROM vc_resources
		WHERE expires_at IS NOT NULL AND expires_at <= $1
			AND status NOT IN ('EXPIRED', 'REVOKED', 'TERMINATED', 'ERROR')
		ORDER BY expires_at
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.WrapExternal(err, "list expiring credentials")
	}
	defer rows.Close() //nolint:errcheck

	out := []models.VerifiableCredentialResource{}
	for rows.Next() {
		res, err := scanCredential(rows)
		if err != nil {
			return nil, pkgerrors.WrapExternal(err, "scan expiring credential")
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type credentialRow interface {
	Scan(dest ...any) error
}

func scanCredential(row credentialRow) (models.VerifiableCredentialResource, error) {
	var res models.VerifiableCredentialResource
	var credID, participant, status, format string
	var claimsBytes, metaBytes []byte
	var expiresAt sql.NullTime

	if err := row.Scan(&credID, &participant, &res.IssuerID, &res.HolderID, &status, &format,
		&res.RawCredential, &claimsBytes, &metaBytes, &expiresAt, &res.TimeOfLastStatusUpdate); err != nil {
		return models.VerifiableCredentialResource{}, err
	}

	parsedID, err := id.ParseCredentialID(credID)
	if err != nil {
		return models.VerifiableCredentialResource{}, fmt.Errorf("parse credential id: %w", err)
	}
	res.ID = parsedID
	res.ParticipantContextID = id.ParticipantID(participant)
	res.Status = models.VcStatus(status)
	parsedFormat, err := models.ParseFormat(format)
	if err != nil {
		return models.VerifiableCredentialResource{}, fmt.Errorf("parse credential format: %w", err)
	}
	res.Format = parsedFormat
	if expiresAt.Valid {
		res.ExpiresAt = expiresAt.Time
	}

	res.StructuredCredential = models.Claims{}
	if len(claimsBytes) > 0 {
		if err := json.Unmarshal(claimsBytes, &res.StructuredCredential); err != nil {
			return models.VerifiableCredentialResource{}, fmt.Errorf("unmarshal credential claims: %w", err)
		}
	}
	res.Metadata = map[string]string{}
	if len(metaBytes) > 0 {
		if err := json.Unmarshal(metaBytes, &res.Metadata); err != nil {
			return models.VerifiableCredentialResource{}, fmt.Errorf("unmarshal credential metadata: %w", err)
		}
	}
	return res, nil
}

func marshalDocs(res models.VerifiableCredentialResource) ([]byte, []byte, error) {
	claimsBytes, err := json.Marshal(res.StructuredCredential)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal credential claims: %w", err)
	}
	metaBytes, err := json.Marshal(res.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal credential metadata: %w", err)
	}
	return claimsBytes, metaBytes, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
