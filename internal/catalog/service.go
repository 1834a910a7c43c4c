package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/davitr/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Service fronts the repo with a redis product cache. Singleflight collapses
// concurrent misses for the same product into one DB read.
type Service struct {
	Repo  *Repo
	Redis *redis.Client
	sfg   singleflight.Group
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	v, err, _ := s.sfg.Do(id, func() (any, error) {
		key := fmt.Sprintf(redisx.KeyProduct, id)
		if b, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var p Product
			if err := json.Unmarshal(b, &p); err == nil {
				return &p, nil
			}
		}

		p, err := s.Repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(p); err == nil {
			if err := s.Redis.Set(ctx, key, b, redisx.TTLProductCache).Err(); err != nil {
				log.Printf("product cache set: %v", err)
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// Invalidate drops the cached product after an admin write or a stock
// mutation made it stale.
func (s *Service) Invalidate(ctx context.Context, id string) {
	if err := s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyProduct, id)).Err(); err != nil {
		log.Printf("product cache invalidate: %v", err)
	}
}
