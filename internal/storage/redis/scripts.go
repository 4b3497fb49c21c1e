package redis

import "github.com/redis/go-redis/v9"

// claimScript advances last_resolved_round to ARGV[1] only if the stored
// value is lower. Returns 1 on success, 0 if already claimed, -1 if the room
// does not exist.
var claimScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'last_resolved_round')
if not current then
  return -1
end
if tonumber(current) < tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], 'last_resolved_round', ARGV[1])
  return 1
end
return 0
`)

// insertBidScript stores the bid for player ARGV[1] unless one exists and
// records submission order. Returns 1 on insert, 0 on duplicate.
var insertBidScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
redis.call('EXPIRE', KEYS[2], ARGV[3])
return 1
`)

// updateRoomScript writes field/value pairs from ARGV[6] onwards to the room
// hash in KEYS[1] if it exists and, when ARGV[4] and ARGV[5] are non-empty,
// only while its phase and current_round still match them. The TTL (ARGV[1])
// of the room, its code index (prefix ARGV[3]), its player list (KEYS[2])
// and every player hash (prefix ARGV[2]) is refreshed so the room's records
// expire together. Returns 1 on write, 0 on a condition mismatch and -1 if
// the room does not exist.
var updateRoomScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if ARGV[4] ~= '' and redis.call('HGET', KEYS[1], 'phase') ~= ARGV[4] then
  return 0
end
if ARGV[5] ~= '' and redis.call('HGET', KEYS[1], 'current_round') ~= ARGV[5] then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 6))
local ttl = tonumber(ARGV[1])
redis.call('EXPIRE', KEYS[1], ttl)
local code = redis.call('HGET', KEYS[1], 'code')
if code then
  redis.call('EXPIRE', ARGV[3] .. code, ttl)
end
if redis.call('EXPIRE', KEYS[2], ttl) == 1 then
  for _, id in ipairs(redis.call('LRANGE', KEYS[2], 0, -1)) do
    redis.call('EXPIRE', ARGV[2] .. id, ttl)
  end
end
return 1
`)

// updatePlayerScript writes the field/value pairs in ARGV to the player hash
// in KEYS[1] only if it exists. Returns 1 if it exists, 0 otherwise.
var updatePlayerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if #ARGV > 0 then
  redis.call('HSET', KEYS[1], unpack(ARGV))
end
return 1
`)

// joinRoomScript seats player ARGV[3] in the room hash KEYS[1] while its
// phase is ARGV[4] and the player list KEYS[2] is shorter than ARGV[2]. The
// player hash KEYS[3] gets the field/value pairs from ARGV[5] onwards.
// Returns 1 on success, -1 for a missing room, -2 for a room past the
// phase and -3 for a full room.
var joinRoomScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HGET', KEYS[1], 'phase') ~= ARGV[4] then
  return -2
end
if redis.call('LLEN', KEYS[2]) >= tonumber(ARGV[2]) then
  return -3
end
local ttl = tonumber(ARGV[1])
redis.call('HSET', KEYS[3], unpack(ARGV, 5))
redis.call('EXPIRE', KEYS[3], ttl)
redis.call('RPUSH', KEYS[2], ARGV[3])
redis.call('EXPIRE', KEYS[2], ttl)
return 1
`)
