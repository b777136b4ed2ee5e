package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// DefaultKey is the hash holding protocol defaults.
const DefaultKey = "indexer:protocol_defaults"

const (
	fieldFeeRecipient   = "fee_recipient"
	fieldVirtualToken   = "initial_virtual_token_reserves"
	fieldVirtualSol     = "initial_virtual_sol_reserves"
	fieldRealToken      = "initial_real_token_reserves"
	fieldTotalSupply    = "token_total_supply"
	fieldFeeBasisPoints = "fee_basis_points"
	fieldUpdatedSlot    = "updated_slot"
)

// DefaultsStore implements storage.DefaultsStore as a single Redis hash.
type DefaultsStore struct {
	client redis.Cmdable
	key    string
}

// NewDefaultsStore creates a store on client. An empty key uses DefaultKey.
func NewDefaultsStore(client redis.Cmdable, key string) (*DefaultsStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		key = DefaultKey
	}
	return &DefaultsStore{client: client, key: key}, nil
}

var _ storage.DefaultsStore = (*DefaultsStore)(nil)

// Load reads the defaults hash. Returns storage.ErrNotFound when absent.
func (s *DefaultsStore) Load(ctx context.Context) (domain.ProtocolDefaults, error) {
	var d domain.ProtocolDefaults

	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return d, fmt.Errorf("load defaults: %w: %w", storage.ErrStorageUnavailable, err)
	}
	if len(values) == 0 {
		return d, storage.ErrNotFound
	}

	d.FeeRecipient = values[fieldFeeRecipient]
	for field, dst := range map[string]*uint64{
		fieldVirtualToken:   &d.InitialVirtualTokenReserves,
		fieldVirtualSol:     &d.InitialVirtualSolReserves,
		fieldRealToken:      &d.InitialRealTokenReserves,
		fieldTotalSupply:    &d.TokenTotalSupply,
		fieldFeeBasisPoints: &d.FeeBasisPoints,
		fieldUpdatedSlot:    &d.UpdatedSlot,
	} {
		raw, ok := values[field]
		if !ok {
			return domain.ProtocolDefaults{}, fmt.Errorf("load defaults: field %s missing", field)
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return domain.ProtocolDefaults{}, fmt.Errorf("load defaults: field %s: %w", field, err)
		}
		*dst = v
	}
	return d, nil
}

// Save writes every field in one transaction.
func (s *DefaultsStore) Save(ctx context.Context, d domain.ProtocolDefaults) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, map[string]interface{}{
		fieldFeeRecipient:   d.FeeRecipient,
		fieldVirtualToken:   strconv.FormatUint(d.InitialVirtualTokenReserves, 10),
		fieldVirtualSol:     strconv.FormatUint(d.InitialVirtualSolReserves, 10),
		fieldRealToken:      strconv.FormatUint(d.InitialRealTokenReserves, 10),
		fieldTotalSupply:    strconv.FormatUint(d.TokenTotalSupply, 10),
		fieldFeeBasisPoints: strconv.FormatUint(d.FeeBasisPoints, 10),
		fieldUpdatedSlot:    strconv.FormatUint(d.UpdatedSlot, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save defaults: %w: %w", storage.ErrStorageUnavailable, err)
	}
	return nil
}
