package credential

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// CredentialSource 定义凭证的统一读取接口，便于替换不同来源（配置、环境变量等）。
type CredentialSource interface {
	Name() string
	Load(ctx context.Context) ([]Credential, error)
}

// StaticSource serves the api_keys list from the configuration file.
type StaticSource struct {
	keys []string
}

// NewStaticSource wraps an order-preserving key list.
func NewStaticSource(keys []string) *StaticSource {
	return &StaticSource{keys: append([]string(nil), keys...)}
}

func (s *StaticSource) Name() string { return "config" }

func (s *StaticSource) Load(ctx context.Context) ([]Credential, error) {
	out := make([]Credential, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, Credential(k))
	}
	return out, nil
}

// LoadAll loads every source in order and concatenates the results. Later
// duplicates are dropped so the first source decides a key's position.
func LoadAll(ctx context.Context, sources ...CredentialSource) ([]Credential, error) {
	var all []Credential
	for _, src := range sources {
		if src == nil {
			continue
		}
		creds, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load credentials from %s: %w", src.Name(), err)
		}
		log.WithFields(log.Fields{"source": src.Name(), "count": len(creds)}).Debug("Loaded credentials")
		all = append(all, creds...)
	}
	return Normalize(all), nil
}
