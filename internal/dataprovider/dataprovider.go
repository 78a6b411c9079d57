package dataprovider

import (
	"github.com/rs/zerolog/log"
)

var provider DataProvider

// DataProvider stores captured bodies.
type DataProvider interface {
	Name() string
	// Create stores body. An empty Id is assigned by the provider; an Id that
	// is already taken fails with ErrExist.
	Create(body *Body) (*Body, error)
	// Get returns the metadata of a body, without its data.
	Get(id string) (*Body, error)
	// Data returns the stored bytes of a body.
	Data(id string) ([]byte, error)
	// Ls lists body metadata in creation order. A zero limit lists everything.
	Ls(limit int, offset int) ([]*Body, error)
	Delete(id string) error
	Close() error
}

func Load(dp DataProvider) {
	provider = dp
}

func Name() string {
	return provider.Name()
}

func Create(body *Body) (*Body, error) {
	log.Debug().Str("c", "dataprovider").Str("id", body.Id).Int64("size", body.Size).Str("type", string(body.ContentType)).Msg("CREATE")
	return provider.Create(body)
}

func Get(id string) (*Body, error) {
	log.Debug().Str("c", "dataprovider").Str("id", id).Msg("GET")
	return provider.Get(id)
}

func Data(id string) ([]byte, error) {
	log.Debug().Str("c", "dataprovider").Str("id", id).Msg("DATA")
	return provider.Data(id)
}

func Ls(limit int, offset int) ([]*Body, error) {
	log.Debug().Str("c", "dataprovider").Int("limit", limit).Int("off", offset).Msg("LS")
	return provider.Ls(limit, offset)
}

func Delete(id string) error {
	log.Debug().Str("c", "dataprovider").Str("id", id).Msg("DELETE")
	return provider.Delete(id)
}

func Close() error {
	log.Debug().Str("c", "dataprovider").Msg("CLOSE")
	return provider.Close()
}
