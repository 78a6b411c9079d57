package boltdb

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	dp "github.com/forscht/rawbody/internal/dataprovider"
)

var (
	metaBucket = []byte("bodies")
	dataBucket = []byte("data")
)

type Provider struct {
	db *bbolt.DB
	sg *snowflake.Node
}

type Config struct {
	DbPath string `mapstructure:"db_path" validate:"required"`
}

func New(cfg *Config) dp.DataProvider {
	p, err := Open(cfg)
	if err != nil {
		log.Fatal().Str("c", "boltdb").Err(err).Str("path", cfg.DbPath).Msg("failed to open db")
	}
	log.Info().Str("c", "boltdb").Str("path", cfg.DbPath).Msg("initialized boltdb as dataprovider")
	return p
}

// Open opens or creates the database at cfg.DbPath.
func Open(cfg *Config) (*Provider, error) {
	db, err := bbolt.Open(cfg.DbPath, 0666, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sg, err := snowflake.NewNode(int64(rand.Intn(1023)))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Provider{db: db, sg: sg}, nil
}

func (bp *Provider) Name() string {
	return "boltdb"
}

func (bp *Provider) Create(body *dp.Body) (*dp.Body, error) {
	meta := *body
	meta.Data = nil
	if meta.Id == "" {
		meta.Id = bp.sg.Generate().String()
	}
	meta.Size = int64(len(body.Data))
	meta.CTime = time.Now().UTC()

	err := bp.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(metaBucket)
		key := []byte(meta.Id)
		if b.Get(key) != nil {
			return dp.ErrExist
		}
		data, err := serialize(&meta)
		if err != nil {
			return err
		}
		if err = b.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(dataBucket).Put(key, body.Data)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (bp *Provider) Get(id string) (*dp.Body, error) {
	var body *dp.Body
	err := bp.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(metaBucket).Get([]byte(id))
		if data == nil {
			return dp.ErrNotExist
		}
		var err error
		body, err = deserialize(data)
		return err
	})
	return body, err
}

func (bp *Provider) Data(id string) ([]byte, error) {
	var out []byte
	err := bp.db.View(func(tx *bbolt.Tx) error {
		key := []byte(id)
		if tx.Bucket(metaBucket).Get(key) == nil {
			return dp.ErrNotExist
		}
		data := tx.Bucket(dataBucket).Get(key)
		// bbolt memory is only valid for the life of the transaction
		out = append([]byte{}, data...)
		return nil
	})
	return out, err
}

// Ls walks the bodies in key order. Generated ids are snowflakes, so that is
// creation order for them.
func (bp *Provider) Ls(limit int, offset int) ([]*dp.Body, error) {
	bodies := make([]*dp.Body, 0)
	err := bp.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(metaBucket).Cursor()
		var skipped int
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(bodies) >= limit {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}
			body, err := deserialize(v)
			if err != nil {
				return err
			}
			bodies = append(bodies, body)
		}
		return nil
	})
	return bodies, err
}

func (bp *Provider) Delete(id string) error {
	return bp.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)
		b := tx.Bucket(metaBucket)
		if b.Get(key) == nil {
			return dp.ErrNotExist
		}
		if err := b.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(dataBucket).Delete(key)
	})
}

func (bp *Provider) Close() error {
	return bp.db.Close()
}

func serialize(body *dp.Body) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(body); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func deserialize(data []byte) (*dp.Body, error) {
	body := new(dp.Body)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(body); err != nil {
		log.Error().Str("c", "boltdb").Err(err).Msg("failed to deserialize body")
		return nil, err
	}
	return body, nil
}
