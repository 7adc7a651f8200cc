package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/otp-store/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	recordPrefix = "otp:record:"
	emailPrefix  = "otp:email:"
	scanBatch    = 100
	maxTxRetries = 3
)

// OTPRepo stores each record as a JSON string whose key expires with the record.
// A per-email sorted set, scored by expires_at, indexes record ids for ListByEmail.
type OTPRepo struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewOTPRepo(client goredis.UniversalClient) *OTPRepo {
	return &OTPRepo{client: client, now: time.Now}
}

func recordKey(otpID string) string { return recordPrefix + otpID }
func emailKey(email string) string  { return emailPrefix + email }

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	ttl := time.Unix(rec.ExpiresAt, 0).Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("otp record %s already expired", rec.ID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}

	idx := emailKey(rec.Email)
	// The index lives as long as its latest deadline; a shorter-lived record never shortens it.
	put := func(tx *goredis.Tx) error {
		deadline := rec.ExpiresAt
		top, err := tx.ZRevRangeWithScores(ctx, idx, 0, 0).Result()
		if err != nil {
			return err
		}
		if len(top) > 0 && int64(top[0].Score) > deadline {
			deadline = int64(top[0].Score)
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, recordKey(rec.ID), data, ttl)
			p.ZAdd(ctx, idx, goredis.Z{Score: float64(rec.ExpiresAt), Member: rec.ID})
			p.ExpireAt(ctx, idx, time.Unix(deadline, 0))
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, put, idx)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, otpID string) (*domain.OTPRecord, error) {
	data, err := r.client.Get(ctx, recordKey(otpID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	var rec domain.OTPRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	if rec.Expired(r.now()) {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

// ListByEmail returns the unexpired records for email, oldest deadline first.
func (r *OTPRepo) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	now := r.now()
	ids, err := r.client.ZRangeByScore(ctx, emailKey(email), &goredis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query otp index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp records: %w", err)
	}

	recs := make([]domain.OTPRecord, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // key expired between the index read and MGET
		}
		var rec domain.OTPRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal otp record: %w", err)
		}
		if !rec.Expired(now) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (r *OTPRepo) Delete(ctx context.Context, otpID string) error {
	data, err := r.client.Get(ctx, recordKey(otpID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get otp record: %w", err)
	}
	var rec domain.OTPRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal otp record: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, recordKey(otpID))
		p.ZRem(ctx, emailKey(rec.Email), otpID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

// DeleteExpired trims index entries whose deadline is at or before now.
// Record keys themselves are removed by Redis key expiry.
func (r *OTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	upper := strconv.FormatInt(now.Unix(), 10)
	removed := 0
	iter := r.client.Scan(ctx, 0, emailPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Result()
		if err != nil {
			return removed, fmt.Errorf("trim otp index %s: %w", iter.Val(), err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan otp indexes: %w", err)
	}
	return removed, nil
}

// Ping checks the server is reachable.
func (r *OTPRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
