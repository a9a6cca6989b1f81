package kvstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ordinals-plus/indexer/internal/model"
)

// claimScript implements the atomic claim algorithm of spec.md §4.5 as a
// single server-side Lua program: read the cursor, find a batchSize-wide
// interval that overlaps no other live claim (retrying up to 10 times by
// sliding past the blocking claim), and write it under the caller's own
// claim key with a TTL. KEYS[2] is excluded from the overlap scan so that a
// second claim call from the same worker replaces its own prior claim
// instead of conflicting with it (idempotence, spec.md §8).
//
// KEYS[1]=cursor key, KEYS[2]=this worker's claim key.
// ARGV[1]=workerId, ARGV[2]=batchSize, ARGV[3]=defaultStart,
// ARGV[4]=claim TTL seconds, ARGV[5]=claim key glob, ARGV[6]=now millis
// (passed by the caller rather than read via the Redis TIME command, so the
// script has no dependency on server-side time support).
const claimScript = `
local cursorRaw = redis.call('GET', KEYS[1])
local batchSize = tonumber(ARGV[2])
local start
if cursorRaw then
	start = tonumber(cursorRaw) + 1
else
	start = tonumber(ARGV[3])
end

local attempt = 0
while attempt < 10 do
	local endN = start + batchSize - 1
	local overlap = false
	local claimKeys = redis.call('KEYS', ARGV[5])
	for _, k in ipairs(claimKeys) do
		if k ~= KEYS[2] then
			local raw = redis.call('GET', k)
			if raw then
				local ok, obj = pcall(cjson.decode, raw)
				if ok then
					local oStart = tonumber(obj['start'])
					local oEnd = tonumber(obj['endInscription'])
					if oStart ~= nil and oEnd ~= nil and start <= oEnd and endN >= oStart then
						overlap = true
						start = oEnd + 1
						break
					end
				end
			end
		end
	end
	if not overlap then
		local claimedAt = tonumber(ARGV[6])
		local claim = cjson.encode({start=start, endInscription=endN, workerId=ARGV[1], claimedAt=claimedAt})
		redis.call('SET', KEYS[2], claim, 'EX', tonumber(ARGV[4]))
		return claim
	end
	attempt = attempt + 1
end
return false
`

var claimLuaScript = redis.NewScript(claimScript)

// ErrNoBatch is returned by ClaimNextBatch when no non-overlapping interval
// was found within 10 attempts.
var ErrNoBatch = errors.New("kvstate: no non-overlapping batch available")

// ClaimNextBatch runs the atomic claim script for workerID and returns the
// claim it was granted, or ErrNoBatch.
func (s *State) ClaimNextBatch(ctx context.Context, workerID string, batchSize, defaultStart int64) (*model.BatchClaim, error) {
	res, err := claimLuaScript.Run(ctx, s.rdb,
		[]string{keyCursor, claimKey(workerID)},
		workerID, batchSize, defaultStart, int64(ClaimTTL.Seconds()), claimGlob(), time.Now().UnixMilli(),
	).Result()
	if errors.Is(err, redis.Nil) {
		// The script's "return false" arrives as a nil reply.
		return nil, ErrNoBatch
	}
	if err != nil {
		return nil, err
	}

	raw, ok := res.(string)
	if !ok || raw == "" {
		return nil, ErrNoBatch
	}

	var claim model.BatchClaim
	if err := json.Unmarshal([]byte(raw), &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// ReleaseClaim deletes workerID's live claim, if any. Called on graceful
// worker shutdown.
func (s *State) ReleaseClaim(ctx context.Context, workerID string) error {
	return s.rdb.Del(ctx, claimKey(workerID)).Err()
}

// ActiveWorkers counts live claim keys at query time, per the Design Notes
// §9 instruction to derive the active-worker count rather than keep a
// separate registry.
func (s *State) ActiveWorkers(ctx context.Context) (int, error) {
	keys, err := s.scanClaimKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// SweepExpiredClaims drops any claim key whose claimedAt is older than
// ClaimTTL. Redis's own key TTL already expires these; this sweep is a
// defensive second pass the worker runs after every processed batch, in
// case a claim was ever written without an expiry attached.
func (s *State) SweepExpiredClaims(ctx context.Context) error {
	keys, err := s.scanClaimKeys(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, k := range keys {
		raw, err := s.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		var claim model.BatchClaim
		if err := json.Unmarshal([]byte(raw), &claim); err != nil {
			continue
		}
		if now-claim.ClaimedAt > ClaimTTL.Milliseconds() {
			if err := s.rdb.Del(ctx, k).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *State) scanClaimKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, claimGlob(), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
