package postgres

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	dp "github.com/forscht/rawbody/internal/dataprovider"
)

type PGProvider struct {
	db *sql.DB
}

type Config struct {
	DbURL string `mapstructure:"db_url" validate:"required"`
}

func New(cfg *Config) dp.DataProvider {
	dbConn := NewDb(cfg.DbURL, false)
	log.Info().Str("c", "postgres").Msg("initialized postgres as dataprovider")
	return &PGProvider{dbConn}
}

func (pgp *PGProvider) Name() string {
	return "postgres"
}

func (pgp *PGProvider) Create(body *dp.Body) (*dp.Body, error) {
	meta := *body
	meta.Data = nil
	if meta.Id == "" {
		meta.Id = uuid.NewString()
	}
	data := body.Data
	if data == nil {
		data = []byte{}
	}
	err := pgp.db.QueryRow(`
		INSERT INTO body (id, content_type, encoding, size, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING size, ctime;
	`, meta.Id, meta.ContentType, meta.Encoding, len(data), data).Scan(&meta.Size, &meta.CTime)
	if err != nil {
		return nil, pqErrToOs(err)
	}
	return &meta, nil
}

func (pgp *PGProvider) Get(id string) (*dp.Body, error) {
	body := new(dp.Body)
	err := pgp.db.QueryRow(`
		SELECT id, content_type, encoding, size, ctime
		FROM body
		WHERE id = $1;
	`, id).Scan(&body.Id, &body.ContentType, &body.Encoding, &body.Size, &body.CTime)
	if err != nil {
		return nil, pqErrToOs(err)
	}
	return body, nil
}

func (pgp *PGProvider) Data(id string) ([]byte, error) {
	var data []byte
	if err := pgp.db.QueryRow(`SELECT data FROM body WHERE id = $1;`, id).Scan(&data); err != nil {
		return nil, pqErrToOs(err)
	}
	return data, nil
}

func (pgp *PGProvider) Ls(limit int, offset int) ([]*dp.Body, error) {
	// LIMIT NULL means no limit
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := pgp.db.Query(`
		SELECT id, content_type, encoding, size, ctime
		FROM body
		ORDER BY ctime, id
		LIMIT $1 OFFSET $2;
	`, lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bodies := make([]*dp.Body, 0)
	for rows.Next() {
		body := new(dp.Body)
		if err = rows.Scan(&body.Id, &body.ContentType, &body.Encoding, &body.Size, &body.CTime); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}

func (pgp *PGProvider) Delete(id string) error {
	res, err := pgp.db.Exec(`DELETE FROM body WHERE id = $1;`, id)
	if err != nil {
		return pqErrToOs(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return dp.ErrNotExist
	}
	return nil
}

func (pgp *PGProvider) Close() error {
	return pgp.db.Close()
}

func pqErrToOs(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return dp.ErrNotExist
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" { // Unique violation error code
			return dp.ErrExist
		}
	}
	return err
}
