package cache

import "time"

// Response is a completed HTTP response kept for replay.
type Response struct {
	Status int
	Body   []byte
	// Fingerprint identifies the request that produced the response; a key
	// reused with a different request is rejected.
	Fingerprint string
}

type idemState struct {
	pending  bool
	response Response
}

// Idempotency remembers responses per (owner, key).
type Idempotency struct {
	lru *LRUCache[idemState]
}

// NewIdempotency keeps at most maxSize responses for ttl each.
func NewIdempotency(maxSize int, ttl time.Duration) *Idempotency {
	return &Idempotency{lru: NewLRUCache[idemState](maxSize, ttl)}
}

func idemKey(owner, key string) string {
	return owner + "\x00" + key
}

// Begin claims the key. When the key is already held it returns the stored
// response, or pending=true while the first request is still running.
func (i *Idempotency) Begin(owner, key string) (prev Response, pending bool, claimed bool) {
	k := idemKey(owner, key)
	if i.lru.SetIfAbsent(k, idemState{pending: true}) {
		return Response{}, false, true
	}
	st, ok := i.lru.Get(k)
	if !ok {
		// Expired between the two calls.
		return i.Begin(owner, key)
	}
	return st.response, st.pending, false
}

// Complete stores the response for a claimed key.
func (i *Idempotency) Complete(owner, key string, resp Response) {
	i.lru.Set(idemKey(owner, key), idemState{response: resp})
}

// Abandon releases a claimed key so the request can be retried.
func (i *Idempotency) Abandon(owner, key string) {
	i.lru.Delete(idemKey(owner, key))
}

// CleanExpired implements Cleaner.
func (i *Idempotency) CleanExpired() int {
	return i.lru.CleanExpired()
}
