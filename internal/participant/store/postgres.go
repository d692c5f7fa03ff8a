package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"idhub/internal/participant/models"
	id "idhub/pkg/domain"
	pkgerrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/sentinel"
)

// PostgresStore persists participant contexts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed participant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const participantColumns = `id, did, state, roles, api_token_alias, properties, created_at, last_modified_at`

func (s *PostgresStore) Create(ctx context.Context, p models.ParticipantContext) error {
	rolesBytes, propsBytes, err := marshalParticipantDocs(p)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO participant_contexts (` + participantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		p.ID.String(),
		p.DID,
		string(p.State),
		rolesBytes,
		p.APITokenAlias.String(),
		propsBytes,
		p.CreatedAt,
		p.LastModified,
	)
	if err != nil {
		return pkgerrors.WrapExternal(err, "create participant")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.WrapExternal(err, "create participant")
	}
	if affected == 0 {
		return pkgerrors.Wrap(sentinel.ErrAlreadyUsed, pkgerrors.CodeConflict, "participant ID already exists")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, participantID id.ParticipantID) (models.ParticipantContext, error) {
	query := `SELECT ` + participantColumns + ` FROM participant_contexts WHERE id = $1`
	p, err := scanParticipant(s.db.QueryRowContext(ctx, query, participantID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ParticipantContext{}, ErrNotFound
		}
		return models.ParticipantContext{}, pkgerrors.WrapExternal(err, "find participant by id")
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p models.ParticipantContext) error {
	rolesBytes, propsBytes, err := marshalParticipantDocs(p)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE participant_contexts
		SET did = $2, state = $3, roles = $4, api_token_alias = $5, properties = $6, last_modified_at = $7
		WHERE id = $1
	`,
		p.ID.String(),
		p.DID,
		string(p.State),
		rolesBytes,
		p.APITokenAlias.String(),
		propsBytes,
		p.LastModified,
	)
	if err != nil {
		return pkgerrors.WrapExternal(err, "update participant")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.WrapExternal(err, "update participant")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, participantID id.ParticipantID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM participant_contexts WHERE id = $1`, participantID.String()); err != nil {
		return pkgerrors.WrapExternal(err, "delete participant")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.ParticipantContext, error) {
	query := `SELECT ` + participantColumns + ` FROM participant_contexts ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, pkgerrors.WrapExternal(err, "list participants")
	}
	defer rows.Close() //nolint:errcheck

	out := []models.ParticipantContext{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, pkgerrors.WrapExternal(err, "scan participant")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type participantRow interface {
	Scan(dest ...any) error
}

func scanParticipant(row participantRow) (models.ParticipantContext, error) {
	var p models.ParticipantContext
	var participantID, state, alias string
	var rolesBytes, propsBytes []byte

	if err := row.Scan(&participantID, &p.DID, &state, &rolesBytes, &alias, &propsBytes,
		&p.CreatedAt, &p.LastModified); err != nil {
		return models.ParticipantContext{}, err
	}

	p.ID = id.ParticipantID(participantID)
	parsedState, err := models.ParseState(state)
	if err != nil {
		return models.ParticipantContext{}, fmt.Errorf("parse participant state: %w", err)
	}
	p.State = parsedState
	p.APITokenAlias = id.SecretAlias(alias)

	p.Roles = []string{}
	if len(rolesBytes) > 0 {
		if err := json.Unmarshal(rolesBytes, &p.Roles); err != nil {
			return models.ParticipantContext{}, fmt.Errorf("unmarshal participant roles: %w", err)
		}
	}
	p.Properties = map[string]string{}
	if len(propsBytes) > 0 {
		if err := json.Unmarshal(propsBytes, &p.Properties); err != nil {
			return models.ParticipantContext{}, fmt.Errorf("unmarshal participant properties: %w", err)
		}
	}
	return p, nil
}

func marshalParticipantDocs(p models.ParticipantContext) ([]byte, []byte, error) {
	rolesBytes, err := json.Marshal(p.Roles)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal participant roles: %w", err)
	}
	propsBytes, err := json.Marshal(p.Properties)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal participant properties: %w", err)
	}
	return rolesBytes, propsBytes, nil
}
